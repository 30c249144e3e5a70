package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	s := NewStandardScaler(true, true)
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	col := mat.Col(nil, 0, out)
	mean, variance := stat.PopMeanVariance(col, nil)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, variance, 1e-12)

	// constant column keeps scale 1 and becomes all zeros
	assert.Equal(t, 1.0, s.Scale[1])
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScaler(true, true)
	_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err, "not fitted")

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.Error(t, err, "feature mismatch")
}

func TestStandardScaler_NoMean(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{3, 4})
	s := NewStandardScaler(false, true)
	out, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Mean[0])
	// scale is the spread around the mean even when not centering
	assert.InDelta(t, 0.5, s.Scale[0], 1e-12)
	assert.InDelta(t, 6.0, out.At(0, 0), 1e-12)
}
