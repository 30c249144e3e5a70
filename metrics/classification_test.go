package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{0, 1, 1, 0}, []int{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy(nil, nil)
	assert.Error(t, err)
	_, err = Accuracy([]int{1}, []int{1, 2})
	assert.Error(t, err)
}

func TestPerClass(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}

	scores, err := PerClass(yTrue, yPred)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// class 0: tp=1 fp=1 fn=1
	assert.InDelta(t, 0.5, scores[0].Precision, 1e-12)
	assert.InDelta(t, 0.5, scores[0].Recall, 1e-12)
	// class 1: tp=2 fp=1 fn=0
	assert.InDelta(t, 2.0/3.0, scores[1].Precision, 1e-12)
	assert.InDelta(t, 1.0, scores[1].Recall, 1e-12)
	assert.InDelta(t, 0.8, scores[1].F1, 1e-12)
	// class 2: tp=1 fp=0 fn=1
	assert.InDelta(t, 1.0, scores[2].Precision, 1e-12)
	assert.Equal(t, 2, scores[2].Support)
}

func TestClassificationReport(t *testing.T) {
	yTrue := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 2, 2})
	yPred := mat.NewDense(6, 1, []float64{0, 1, 1, 1, 2, 0})

	report, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	// sklearn.metrics with average="weighted"
	assert.InDelta(t, 4.0/6.0, report[AccuracyKey], 1e-12)
	assert.InDelta(t, (0.5+2.0/3.0+1.0)/3.0, report[PrecisionKey], 1e-12)
	assert.InDelta(t, (0.5+1.0+0.5)/3.0, report[RecallKey], 1e-12)
	assert.InDelta(t, (0.5+0.8+2.0/3.0)/3.0, report[F1Key], 1e-12)
	for k, v := range report {
		assert.False(t, math.IsNaN(v), k)
	}
}

func TestClassificationReport_UndefinedPrecision(t *testing.T) {
	// label 1 is never predicted
	yTrue := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	yPred := mat.NewDense(4, 1, []float64{0, 0, 0, 0})

	report, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, report[AccuracyKey], 1e-12)
	assert.InDelta(t, 0.5*(2.0/4.0), report[PrecisionKey], 1e-12)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []int{0, 2, 1}, Labels(mat.NewDense(3, 1, []float64{0.0000001, 1.9999, 1})))
}
