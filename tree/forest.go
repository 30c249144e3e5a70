package tree

import (
	"context"
	"runtime"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/core/parallel"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Forest holds the state shared by both random forest flavours. It is
// exported so the embedded fields survive gob encoding.
type Forest struct {
	Params
	State *model.StateManager

	Trees []*Tree
}

// fit grows NEstimators trees concurrently. Each tree draws its own seed
// from RandomState up front so results do not depend on scheduling.
func (f *Forest) fit(X mat.Matrix, n int, newCrit func() criterion) error {
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	master := newRand(f.RandomState)
	seeds := make([]int64, f.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*Tree, f.NEstimators)
	err := parallel.ForEach(context.Background(), f.NEstimators, runtime.GOMAXPROCS(0), func(_ context.Context, t int) {
		rng := newRand(seeds[t])
		idx := sequence(n)
		if f.Bootstrap {
			for i := range idx {
				idx[i] = rng.Intn(n)
			}
		}
		trees[t] = grow(X, idx, newCrit(), f.Params, rng)
	})
	if err != nil {
		return err
	}
	f.Trees = trees
	return nil
}

// FeatureImportances averages tree importances and renormalizes them.
func (f *Forest) FeatureImportances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	out := make([]float64, f.Trees[0].NFeatures)
	var total float64
	for _, t := range f.Trees {
		for j, v := range t.Importances {
			out[j] += v
			total += v
		}
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// GetParams implements model.ParameterGetter.
func (f *Forest) GetParams() map[string]interface{} {
	m := f.asMap()
	m["n_estimators"] = f.NEstimators
	m["bootstrap"] = f.Bootstrap
	return m
}

// SetParams updates hyperparameters from a loosely typed map.
func (f *Forest) SetParams(params map[string]interface{}) error { return f.Set(params) }

// RandomForestClassifier averages the class proportions of bootstrapped
// Gini trees that consider sqrt(n_features) features per split.
type RandomForestClassifier struct {
	Forest
	ClassLabels []int
}

// NewRandomForestClassifier creates an unfitted forest classifier.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	p := defaultParams(CriterionGini)
	p.MaxFeatures = MaxFeaturesSqrt
	for _, opt := range opts {
		opt(&p)
	}
	return &RandomForestClassifier{Forest: Forest{Params: p, State: model.NewStateManager()}}
}

// Fit grows the ensemble.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	n, p, err := checkXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := rf.validate(true); err != nil {
		return err
	}
	labels, encoded := encodeLabels(y)
	entropy := rf.Criterion == CriterionEntropy
	if err := rf.fit(X, n, func() criterion { return newClassCriterion(encoded, len(labels), entropy) }); err != nil {
		return err
	}
	rf.ClassLabels = labels
	rf.State.SetFitted(n, p, 1)
	return nil
}

// PredictProba averages leaf proportions across trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.State.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	return leafValues("RandomForestClassifier.PredictProba", rf.State, rf.Trees, len(rf.ClassLabels), X)
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, rf.ClassLabels), nil
}

// Classes returns the sorted labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []int { return append([]int(nil), rf.ClassLabels...) }

// RandomForestRegressor averages the predictions of bootstrapped
// squared-error trees.
type RandomForestRegressor struct {
	Forest
}

// NewRandomForestRegressor creates an unfitted forest regressor.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	p := defaultParams(CriterionMSE)
	for _, opt := range opts {
		opt(&p)
	}
	return &RandomForestRegressor{Forest: Forest{Params: p, State: model.NewStateManager()}}
}

// Fit grows the ensemble.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	n, p, err := checkXY("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := rf.validate(false); err != nil {
		return err
	}
	rows, k := targetRows(y)
	if err := rf.fit(X, n, func() criterion { return newMSECriterion(rows, k) }); err != nil {
		return err
	}
	rf.State.SetFitted(n, p, k)
	return nil
}

// Predict averages leaf means across trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.State.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	_, _, k := rf.State.Dimensions()
	return leafValues("RandomForestRegressor.Predict", rf.State, rf.Trees, k, X)
}
