package linear

import (
	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares. Multi-column y fits one
// coefficient row per output.
type LinearRegression struct {
	Params
	State *model.StateManager

	// Coef has one row per output.
	Coef [][]float64
	// Intercept has one entry per output.
	Intercept []float64
}

// NewLinearRegression creates an unfitted LinearRegression. Only
// WithFitIntercept applies.
func NewLinearRegression(opts ...Option) *LinearRegression {
	return &LinearRegression{Params: applyOptions(opts), State: model.NewStateManager()}
}

// Fit solves the least squares problem with a QR (tall X) or LQ (wide X)
// factorization. An ill-conditioned system falls back to a ridge solve with
// a negligible penalty so collinear features still get finite coefficients.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	n, p, k, err := checkXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	xc, yc, xMean, yMean := center(X, y, lr.FitIntercept)

	var w mat.Dense
	if err := w.Solve(xc, yc); err != nil {
		jittered, rerr := solveRidge(xc, yc, 1e-8)
		if rerr != nil {
			return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
		}
		w = *jittered
	}

	lr.Coef = coefRows(&w)
	lr.Intercept = intercepts(lr.Coef, xMean, yMean, lr.FitIntercept)
	lr.State.SetFitted(n, p, k)
	return nil
}

// Predict returns one column per output.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.State.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	_, c := X.Dims()
	if err := lr.State.CheckFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.Coef, lr.Intercept), nil
}

// Coefficients implements model.LinearModel.
func (lr *LinearRegression) Coefficients() [][]float64 { return copyRows(lr.Coef) }

// Intercepts implements model.LinearModel.
func (lr *LinearRegression) Intercepts() []float64 { return append([]float64(nil), lr.Intercept...) }

// GetParams implements model.ParameterGetter.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.FitIntercept}
}

// Ridge is least squares with an L2 penalty alpha*||w||^2.
type Ridge struct {
	Params
	State *model.StateManager

	Coef      [][]float64
	Intercept []float64
}

// NewRidge creates an unfitted Ridge. WithAlpha and WithFitIntercept apply.
func NewRidge(opts ...Option) *Ridge {
	return &Ridge{Params: applyOptions(opts), State: model.NewStateManager()}
}

// Fit solves (X^T X + alpha I) w = X^T y by Cholesky factorization.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	n, p, k, err := checkXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}

	xc, yc, xMean, yMean := center(X, y, r.FitIntercept)
	w, err := solveRidge(xc, yc, r.Alpha)
	if err != nil {
		return errors.NewModelError("Ridge.Fit", "singular matrix", err)
	}

	r.Coef = coefRows(w)
	r.Intercept = intercepts(r.Coef, xMean, yMean, r.FitIntercept)
	r.State.SetFitted(n, p, k)
	return nil
}

// Predict returns one column per output.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.State.RequireFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	_, c := X.Dims()
	if err := r.State.CheckFeatures("Ridge.Predict", c); err != nil {
		return nil, err
	}
	return predictLinear(X, r.Coef, r.Intercept), nil
}

// Coefficients implements model.LinearModel.
func (r *Ridge) Coefficients() [][]float64 { return copyRows(r.Coef) }

// Intercepts implements model.LinearModel.
func (r *Ridge) Intercepts() []float64 { return append([]float64(nil), r.Intercept...) }

// GetParams implements model.ParameterGetter.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": r.Alpha, "fit_intercept": r.FitIntercept}
}

func solveRidge(xc, yc *mat.Dense, alpha float64) (*mat.Dense, error) {
	_, p := xc.Dims()

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, errors.ErrSingularMatrix
	}

	var xty mat.Dense
	xty.Mul(xc.T(), yc)

	var w mat.Dense
	if err := chol.SolveTo(&w, &xty); err != nil {
		return nil, err
	}
	return &w, nil
}
