package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestRandomForestClassifier_Separable(t *testing.T) {
	X, y := twoBlobs()
	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(7), WithBootstrap(false))
	require.NoError(t, rf.Fit(X, y))

	pred, err := rf.Predict(mat.NewDense(2, 2, []float64{0, 0, 3, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, pred))

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, 1.0, floats.Sum(mat.Row(nil, i, proba)), 1e-9)
	}
	assert.Len(t, rf.Trees, 25)
	assert.InDelta(t, 1.0, floats.Sum(rf.FeatureImportances()), 1e-9)
}

func TestRandomForestClassifier_Deterministic(t *testing.T) {
	X := mat.NewDense(20, 2, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, math.Sin(float64(i)))
		if i >= 10 {
			y.Set(i, 0, 1)
		}
	}

	fit := func() []float64 {
		rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(42))
		require.NoError(t, rf.Fit(X, y))
		proba, err := rf.PredictProba(X)
		require.NoError(t, err)
		return mat.Col(nil, 1, proba)
	}
	assert.Equal(t, fit(), fit())
}

func TestRandomForestRegressor_Fits(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / 4
		X.Set(i, 0, x)
		X.Set(i, 1, float64(i%3))
		y.Set(i, 0, 3*x)
	}

	rf := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))
	pred, err := rf.Predict(X)
	require.NoError(t, err)

	r, c := pred.Dims()
	assert.Equal(t, []int{n, 1}, []int{r, c})

	imp := rf.FeatureImportances()
	assert.Greater(t, imp[0], imp[1])

	params := rf.GetParams()
	assert.Equal(t, 20, params["n_estimators"])
}

func TestRandomForest_Validation(t *testing.T) {
	X, y := twoBlobs()
	assert.Error(t, NewRandomForestClassifier(WithNEstimators(0)).Fit(X, y))
	assert.Error(t, NewRandomForestRegressor(WithMaxFeatures("half")).Fit(X, y))
}
