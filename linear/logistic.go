package linear

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is an L2-regularized logistic classifier. Two classes
// fit a single weight vector for the larger label; more classes fit one
// binary problem per class (one-vs-rest).
type LogisticRegression struct {
	Params
	State *model.StateManager

	Coef        [][]float64
	Intercept   []float64
	ClassLabels []int
	NIter       []int
}

// NewLogisticRegression creates an unfitted LogisticRegression. MaxIter
// defaults to 100 unless WithMaxIter is given.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	p := defaultParams()
	p.MaxIter = 100
	for _, opt := range opts {
		opt(&p)
	}
	return &LogisticRegression{Params: p, State: model.NewStateManager()}
}

// Fit trains by full-batch gradient descent on the mean log loss plus
// ||w||^2 / (2*C*n), with a decaying step size.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	n, p, k, err := checkXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if k != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, k, 1)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	lr.ClassLabels = uniqueLabels(y)
	if len(lr.ClassLabels) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			"needs samples of at least 2 classes in the data")
	}

	var rng *rand.Rand
	if lr.RandomState >= 0 {
		rng = rand.New(rand.NewSource(lr.RandomState))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	targets := lr.ClassLabels
	if len(targets) == 2 {
		targets = targets[1:]
	}

	Xd := mat.DenseCopyOf(X)
	lr.Coef = make([][]float64, len(targets))
	lr.Intercept = make([]float64, len(targets))
	lr.NIter = make([]int, len(targets))

	for c, label := range targets {
		yb := make([]float64, n)
		for i := 0; i < n; i++ {
			if int(y.At(i, 0)) == label {
				yb[i] = 1
			}
		}
		w := make([]float64, p)
		for j := range w {
			w[j] = rng.NormFloat64() * 0.01
		}
		b, iters, err := lr.descend(Xd, yb, w)
		if err != nil {
			return err
		}
		lr.Coef[c] = w
		lr.Intercept[c] = b
		lr.NIter[c] = iters
	}

	lr.State.SetFitted(n, p, 1)
	return nil
}

// descend updates w in place and returns the intercept and iteration count.
func (lr *LogisticRegression) descend(X *mat.Dense, yb, w []float64) (float64, int, error) {
	n, p := X.Dims()
	nf := float64(n)
	lambda := 1 / (lr.C * nf)
	grad := make([]float64, p)
	var b float64

	for iter := 0; iter < lr.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradB float64
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			z := b
			for j, v := range row {
				z += v * w[j]
			}
			e := sigmoid(z) - yb[i]
			gradB += e
			for j, v := range row {
				grad[j] += e * v
			}
		}

		maxGrad := 0.0
		if lr.FitIntercept {
			gradB /= nf
			maxGrad = math.Abs(gradB)
		}
		for j := range grad {
			grad[j] = grad[j]/nf + lambda*w[j]
			maxGrad = math.Max(maxGrad, math.Abs(grad[j]))
		}

		step := 1.0 / (1.0 + 0.1*float64(iter))
		for j := range w {
			w[j] -= step * grad[j]
		}
		if lr.FitIntercept {
			b -= step * gradB
		}

		if err := errors.CheckNumericalStability("LogisticRegression.Fit", w, iter); err != nil {
			return 0, iter, err
		}
		if maxGrad < lr.Tol {
			return b, iter + 1, nil
		}
	}

	errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.MaxIter, ""))
	return b, lr.MaxIter, nil
}

// PredictProba returns an n x n_classes matrix whose rows sum to 1. Columns
// follow Classes().
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.State.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if err := lr.State.CheckFeatures("LogisticRegression.PredictProba", c); err != nil {
		return nil, err
	}

	scores := predictLinear(X, lr.Coef, lr.Intercept)
	nc := len(lr.ClassLabels)
	out := mat.NewDense(n, nc, nil)
	for i := 0; i < n; i++ {
		if nc == 2 {
			p := sigmoid(scores.At(i, 0))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
			continue
		}
		var sum float64
		for k := 0; k < nc; k++ {
			v := sigmoid(scores.At(i, k))
			out.Set(i, k, v)
			sum += v
		}
		for k := 0; k < nc; k++ {
			out.Set(i, k, out.At(i, k)/sum)
		}
	}
	return out, nil
}

// Predict returns the most probable class label per row as an n x 1 matrix.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, nc := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for k := 1; k < nc; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, float64(lr.ClassLabels[best]))
	}
	return out, nil
}

// Classes returns the sorted class labels seen during Fit.
func (lr *LogisticRegression) Classes() []int { return append([]int(nil), lr.ClassLabels...) }

// Coefficients implements model.LinearModel.
func (lr *LogisticRegression) Coefficients() [][]float64 { return copyRows(lr.Coef) }

// Intercepts implements model.LinearModel.
func (lr *LogisticRegression) Intercepts() []float64 {
	return append([]float64(nil), lr.Intercept...)
}

// GetParams implements model.ParameterGetter.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
		"random_state":  lr.RandomState,
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + errors.StabilizeExp(-z))
}

func uniqueLabels(y mat.Matrix) []int {
	n, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < n; i++ {
		seen[int(y.At(i, 0))] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}
