// Package linear implements the linear estimators behind the built-in
// linear, ridge, lasso, elasticnet and logistic plugins.
package linear

// Params holds the hyperparameters shared by the linear estimators. Each
// estimator reads only the fields that apply to it.
type Params struct {
	// FitIntercept centers X and y before solving and recovers the
	// intercept afterwards.
	FitIntercept bool

	// Alpha is the regularization strength for Ridge, Lasso and ElasticNet.
	Alpha float64

	// L1Ratio mixes L1 and L2 penalties in ElasticNet; 1 is Lasso.
	L1Ratio float64

	// C is the inverse regularization strength for LogisticRegression.
	C float64

	MaxIter int
	Tol     float64

	// RandomState seeds weight initialization; negative means unseeded.
	RandomState int64
}

func defaultParams() Params {
	return Params{
		FitIntercept: true,
		Alpha:        1.0,
		L1Ratio:      0.5,
		C:            1.0,
		MaxIter:      1000,
		Tol:          1e-4,
		RandomState:  -1,
	}
}

// Option configures a linear estimator.
type Option func(*Params)

// WithFitIntercept sets whether to fit an intercept.
func WithFitIntercept(fit bool) Option {
	return func(p *Params) { p.FitIntercept = fit }
}

// WithAlpha sets the regularization strength.
func WithAlpha(alpha float64) Option {
	return func(p *Params) { p.Alpha = alpha }
}

// WithL1Ratio sets the ElasticNet mixing parameter.
func WithL1Ratio(ratio float64) Option {
	return func(p *Params) { p.L1Ratio = ratio }
}

// WithC sets the inverse regularization strength for logistic regression.
func WithC(c float64) Option {
	return func(p *Params) { p.C = c }
}

// WithMaxIter sets the iteration cap for iterative solvers.
func WithMaxIter(n int) Option {
	return func(p *Params) { p.MaxIter = n }
}

// WithTol sets the convergence tolerance for iterative solvers.
func WithTol(tol float64) Option {
	return func(p *Params) { p.Tol = tol }
}

// WithRandomState seeds random initialization.
func WithRandomState(seed int64) Option {
	return func(p *Params) { p.RandomState = seed }
}

func applyOptions(opts []Option) Params {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
