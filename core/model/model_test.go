package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

type fakeLinear struct {
	coef      [][]float64
	intercept []float64
}

func (f fakeLinear) Coefficients() [][]float64 { return f.coef }
func (f fakeLinear) Intercepts() []float64     { return f.intercept }

type fakeTree struct{ imp []float64 }

func (f fakeTree) FeatureImportances() []float64 { return f.imp }

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Ridge", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Ridge", nf.ModelName)

	s.SetFitted(100, 3, 1)
	assert.NoError(t, s.RequireFitted("Ridge", "Predict"))
	n, p, o := s.Dimensions()
	assert.Equal(t, []int{100, 3, 1}, []int{n, p, o})
	assert.NoError(t, s.CheckFeatures("Ridge.Predict", 3))
	assert.Error(t, s.CheckFeatures("Ridge.Predict", 4))

	s.Reset()
	assert.False(t, s.IsFitted())
}

func TestWeights(t *testing.T) {
	lin := LinearWeights(fakeLinear{coef: [][]float64{{1.5, -2}}, intercept: []float64{0.25}})
	require.NoError(t, lin.Validate())
	assert.Equal(t, WeightsLinear, lin.Kind)
	assert.Equal(t, map[string]float64{"age": 1.5, "x1": -2, "intercept": 0.25}, lin.CoefficientMap([]string{"age"}))

	clone := lin.Clone()
	clone.Coefficients[0][0] = 99
	assert.Equal(t, 1.5, lin.Coefficients[0][0], "clone must not alias")

	imp := ImportanceWeights(fakeTree{imp: []float64{0.7, 0.3}})
	require.NoError(t, imp.Validate())
	assert.Nil(t, imp.CoefficientMap(nil))

	bad := &Weights{Kind: WeightsLinear, Coefficients: [][]float64{{1}}, Intercept: nil}
	assert.Error(t, bad.Validate())
	assert.Error(t, (&Weights{Kind: "other"}).Validate())
}

type persisted struct {
	Name  string
	Coef  *mat.VecDense
	State *StateManager
}

func TestSaveLoadModel(t *testing.T) {
	state := NewStateManager()
	state.SetFitted(10, 2, 1)
	in := &persisted{Name: "ridge", Coef: mat.NewVecDense(2, []float64{1, 2}), State: state}

	path := filepath.Join(t.TempDir(), "ridge.gob")
	require.NoError(t, SaveModel(in, path))

	var out persisted
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, "ridge", out.Name)
	assert.True(t, mat.Equal(in.Coef, out.Coef))
	assert.True(t, out.State.IsFitted())

	var buf bytes.Buffer
	err := SaveModelToWriter(func() {}, &buf)
	assert.Error(t, err, "functions cannot be gob-encoded")
}
