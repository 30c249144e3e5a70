// Package metrics implements the evaluation metrics reported by the built-in
// plugins and consumed by model selection.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Regression metric names.
const (
	MSEKey  = "mse"
	RMSEKey = "rmse"
	MAEKey  = "mae"
	R2Key   = "r2"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE is the mean squared error.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score is the coefficient of determination. It fails when yTrue has no
// variance; RegressionReport applies a finite fallback instead.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// RegressionReport computes mse, rmse, mae and r2 for matrices with one
// column per output, averaging each metric uniformly over outputs. A
// constant target column scores r2=1 when predicted exactly and 0 otherwise,
// so every value is finite.
func RegressionReport(yTrue, yPred mat.Matrix) (map[string]float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return nil, errors.NewValueError("RegressionReport", "empty matrix")
	}
	if rTrue != rPred {
		return nil, errors.NewDimensionError("RegressionReport", rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return nil, errors.NewDimensionError("RegressionReport", cTrue, cPred, 1)
	}

	report := map[string]float64{MSEKey: 0, RMSEKey: 0, MAEKey: 0, R2Key: 0}
	for j := 0; j < cTrue; j++ {
		t := mat.NewVecDense(rTrue, mat.Col(nil, j, yTrue))
		p := mat.NewVecDense(rPred, mat.Col(nil, j, yPred))

		mse, err := MSE(t, p)
		if err != nil {
			return nil, err
		}
		mae, err := MAE(t, p)
		if err != nil {
			return nil, err
		}
		r2, err := R2Score(t, p)
		if err != nil {
			r2 = 0
			if mse == 0 {
				r2 = 1
			}
		}
		report[MSEKey] += mse
		report[RMSEKey] += math.Sqrt(mse)
		report[MAEKey] += mae
		report[R2Key] += r2
	}
	for k := range report {
		report[k] /= float64(cTrue)
	}
	return report, nil
}
