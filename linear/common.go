package linear

import (
	"github.com/YuminosukeSato/scigo-automl/core/parallel"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rows above which prediction is split across CPUs
const parallelThreshold = 1000

// checkXY validates shapes shared by every Fit.
func checkXY(op string, X, y mat.Matrix) (n, p, k int, err error) {
	n, p = X.Dims()
	ry, k := y.Dims()
	if n == 0 || p == 0 || k == 0 {
		return 0, 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return 0, 0, 0, errors.NewDimensionError(op, n, ry, 0)
	}
	return n, p, k, nil
}

// center returns copies of X and Y with column means removed when
// fitIntercept is set, together with those means.
func center(X, Y mat.Matrix, fitIntercept bool) (xc, yc *mat.Dense, xMean, yMean []float64) {
	n, p := X.Dims()
	_, k := Y.Dims()
	xc = mat.DenseCopyOf(X)
	yc = mat.DenseCopyOf(Y)
	xMean = make([]float64, p)
	yMean = make([]float64, k)
	if !fitIntercept {
		return xc, yc, xMean, yMean
	}

	col := make([]float64, n)
	for j := 0; j < p; j++ {
		xMean[j] = stat.Mean(mat.Col(col, j, xc), nil)
	}
	for j := 0; j < k; j++ {
		yMean[j] = stat.Mean(mat.Col(col, j, yc), nil)
	}
	xc.Apply(func(_, j int, v float64) float64 { return v - xMean[j] }, xc)
	yc.Apply(func(_, j int, v float64) float64 { return v - yMean[j] }, yc)
	return xc, yc, xMean, yMean
}

// intercepts recovers b_k = yMean_k - coef_k . xMean.
func intercepts(coef [][]float64, xMean, yMean []float64, fitIntercept bool) []float64 {
	out := make([]float64, len(coef))
	if !fitIntercept {
		return out
	}
	for k, row := range coef {
		b := yMean[k]
		for j, w := range row {
			b -= w * xMean[j]
		}
		out[k] = b
	}
	return out
}

// coefRows converts a p x k solution matrix into k rows of p coefficients.
func coefRows(w mat.Matrix) [][]float64 {
	p, k := w.Dims()
	rows := make([][]float64, k)
	for c := 0; c < k; c++ {
		rows[c] = make([]float64, p)
		for j := 0; j < p; j++ {
			rows[c][j] = w.At(j, c)
		}
	}
	return rows
}

// predictLinear evaluates X*coef^T + intercept.
func predictLinear(X mat.Matrix, coef [][]float64, intercept []float64) *mat.Dense {
	n, p := X.Dims()
	k := len(coef)
	out := mat.NewDense(n, k, nil)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for c := 0; c < k; c++ {
				v := intercept[c]
				for j := 0; j < p; j++ {
					v += X.At(i, j) * coef[c][j]
				}
				out.Set(i, c, v)
			}
		}
	})
	return out
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
