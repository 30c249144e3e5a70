package linear

import (
	"math"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ElasticNet minimizes
//
//	1/(2n) ||y - Xw||^2 + alpha*l1_ratio*||w||_1 + 0.5*alpha*(1-l1_ratio)*||w||^2
//
// by cyclic coordinate descent, one output column at a time.
type ElasticNet struct {
	Params
	State *model.StateManager

	// Name is "Lasso" or "ElasticNet"; it labels errors and warnings.
	Name string

	Coef      [][]float64
	Intercept []float64
	NIter     []int
}

// NewElasticNet creates an unfitted ElasticNet.
func NewElasticNet(opts ...Option) *ElasticNet {
	return &ElasticNet{Params: applyOptions(opts), State: model.NewStateManager(), Name: "ElasticNet"}
}

// NewLasso creates an ElasticNet with l1_ratio fixed at 1.
func NewLasso(opts ...Option) *ElasticNet {
	e := NewElasticNet(opts...)
	e.L1Ratio = 1
	e.Name = "Lasso"
	return e
}

// Fit runs coordinate descent until the largest coefficient update relative
// to the largest coefficient falls below Tol. Hitting MaxIter raises a
// ConvergenceWarning and keeps the last iterate.
func (e *ElasticNet) Fit(X, y mat.Matrix) error {
	op := e.Name + ".Fit"
	n, p, k, err := checkXY(op, X, y)
	if err != nil {
		return err
	}
	if e.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", e.Alpha)
	}
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", e.L1Ratio)
	}

	xc, yc, xMean, yMean := center(X, y, e.FitIntercept)

	colNorm := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			v := xc.At(i, j)
			colNorm[j] += v * v
		}
	}

	nf := float64(n)
	l1 := e.Alpha * e.L1Ratio
	l2 := e.Alpha * (1 - e.L1Ratio)

	e.Coef = make([][]float64, k)
	e.NIter = make([]int, k)
	for out := 0; out < k; out++ {
		w := make([]float64, p)
		r := mat.Col(nil, out, yc)

		converged := false
		iter := 0
		for iter < e.MaxIter && !converged {
			iter++
			var maxDelta, maxW float64
			for j := 0; j < p; j++ {
				if colNorm[j] == 0 {
					continue
				}
				old := w[j]
				rho := colNorm[j] * old
				for i := 0; i < n; i++ {
					rho += xc.At(i, j) * r[i]
				}
				w[j] = softThreshold(rho/nf, l1) / (colNorm[j]/nf + l2)

				if d := w[j] - old; d != 0 {
					for i := 0; i < n; i++ {
						r[i] -= xc.At(i, j) * d
					}
					maxDelta = math.Max(maxDelta, math.Abs(d))
				}
				maxW = math.Max(maxW, math.Abs(w[j]))
			}
			if err := errors.CheckNumericalStability(op, w, iter); err != nil {
				return err
			}
			converged = maxW == 0 || maxDelta/maxW < e.Tol
		}
		if !converged {
			errors.Warn(errors.NewConvergenceWarning(e.Name, e.MaxIter, ""))
		}
		e.Coef[out] = w
		e.NIter[out] = iter
	}

	e.Intercept = intercepts(e.Coef, xMean, yMean, e.FitIntercept)
	e.State.SetFitted(n, p, k)
	return nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// Predict returns one column per output.
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := e.State.RequireFitted(e.Name, "Predict"); err != nil {
		return nil, err
	}
	_, c := X.Dims()
	if err := e.State.CheckFeatures(e.Name+".Predict", c); err != nil {
		return nil, err
	}
	return predictLinear(X, e.Coef, e.Intercept), nil
}

// Coefficients implements model.LinearModel.
func (e *ElasticNet) Coefficients() [][]float64 { return copyRows(e.Coef) }

// Intercepts implements model.LinearModel.
func (e *ElasticNet) Intercepts() []float64 { return append([]float64(nil), e.Intercept...) }

// GetParams implements model.ParameterGetter.
func (e *ElasticNet) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         e.Alpha,
		"l1_ratio":      e.L1Ratio,
		"fit_intercept": e.FitIntercept,
		"max_iter":      e.MaxIter,
		"tol":           e.Tol,
	}
}
