package neighbors

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

func TestKNeighborsClassifier(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{3, 3, 3, 7, 7, 7})

	kn := NewKNeighborsClassifier(WithNNeighbors(3))
	require.NoError(t, kn.Fit(X, y))
	assert.Equal(t, []int{3, 7}, kn.Classes())

	pred, err := kn.Predict(mat.NewDense(2, 1, []float64{1.5, 10.5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7}, mat.Col(nil, 0, pred))

	// neighbours of 5.8 are 2 (3), 10 (7) and 1 (3)
	proba, err := kn.PredictProba(mat.NewDense(1, 1, []float64{5.8}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1.0 / 3}, mat.Row(nil, 0, proba), 1e-12)
}

func TestKNeighborsClassifier_DistanceWeights(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 4})
	y := mat.NewDense(3, 1, []float64{0, 0, 1})

	kn := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(WeightsDistance))
	require.NoError(t, kn.Fit(X, y))

	// an exact match takes the whole vote
	proba, err := kn.PredictProba(mat.NewDense(1, 1, []float64{4}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Row(nil, 0, proba))

	// at 3.5: weights 1/3.5, 1/2.5 for class 0 and 1/0.5 for class 1
	pred, err := kn.Predict(mat.NewDense(1, 1, []float64{3.5}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
}

func TestKNeighborsRegressor(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 1, 0, 0, 1, 5, 5})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 100})

	kn := NewKNeighborsRegressor(WithNNeighbors(3))
	require.NoError(t, kn.Fit(X, y))
	pred, err := kn.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 1e-12)

	manhattan := NewKNeighborsRegressor(WithNNeighbors(1), WithP(1))
	require.NoError(t, manhattan.Fit(X, y))
	pred, err = manhattan.Predict(mat.NewDense(1, 2, []float64{4, 4}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, pred.At(0, 0))

	assert.Equal(t, 3, kn.GetParams()["n_neighbors"])
}

func TestKNeighbors_Errors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	kn := NewKNeighborsClassifier()
	_, err := kn.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	var ve *errors.ValueError
	assert.True(t, errors.As(kn.Fit(X, y), &ve), "k=5 exceeds 2 samples")

	var vale *errors.ValidationError
	assert.True(t, errors.As(NewKNeighborsRegressor(WithNNeighbors(1), WithWeights("cosine")).Fit(X, y), &vale))

	reg := NewKNeighborsRegressor(WithNNeighbors(1))
	require.NoError(t, reg.Fit(X, y))
	_, err = reg.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestKNeighbors_GobRoundTrip(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	kn := NewKNeighborsClassifier(WithNNeighbors(1))
	require.NoError(t, kn.Fit(X, y))

	path := filepath.Join(t.TempDir(), "knn.gob")
	require.NoError(t, model.SaveModel(kn, path))
	var loaded KNeighborsClassifier
	require.NoError(t, model.LoadModel(&loaded, path))

	pred, err := loaded.Predict(mat.NewDense(1, 1, []float64{2.9}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))

	var _ model.Classifier = kn
	var _ model.ParameterGetter = kn
}
