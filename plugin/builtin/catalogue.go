// Package builtin provides the model plugins that ship with automl: linear
// models, trees, forests and nearest neighbours, each registered as a
// factory that YAML manifests can name.
package builtin

import (
	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/linear"
	"github.com/YuminosukeSato/scigo-automl/neighbors"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/tree"
)

// Entry describes one built-in plugin.
type Entry struct {
	// Factory is the registration name, also used as the default plugin name.
	Factory  string
	TaskType plugin.TaskType
	// Defaults are written into the default manifest.
	Defaults map[string]any

	build func(hp map[string]any) (model.Estimator, error)
}

// Catalogue returns every built-in plugin, regression first.
func Catalogue() []Entry {
	return []Entry{
		{Factory: "linear", TaskType: plugin.Regression,
			Defaults: map[string]any{"fit_intercept": true},
			build:    buildLinear},
		{Factory: "ridge", TaskType: plugin.Regression,
			Defaults: map[string]any{"alpha": 1.0, "fit_intercept": true},
			build:    buildRidge},
		{Factory: "lasso", TaskType: plugin.Regression,
			Defaults: map[string]any{"alpha": 0.1, "max_iter": 1000, "tol": 1e-4},
			build:    buildLasso},
		{Factory: "elasticnet", TaskType: plugin.Regression,
			Defaults: map[string]any{"alpha": 0.1, "l1_ratio": 0.5, "max_iter": 1000, "tol": 1e-4},
			build:    buildElasticNet},
		{Factory: "decision_tree_regressor", TaskType: plugin.Regression,
			Defaults: map[string]any{"max_depth": 0, "min_samples_split": 2, "min_samples_leaf": 1, "random_state": 42},
			build:    buildTreeRegressor},
		{Factory: "random_forest_regressor", TaskType: plugin.Regression,
			Defaults: map[string]any{"n_estimators": 100, "max_depth": 0, "random_state": 42},
			build:    buildForestRegressor},
		{Factory: "knn_regressor", TaskType: plugin.Regression,
			Defaults: map[string]any{"n_neighbors": 5, "weights": neighbors.WeightsUniform},
			build:    buildKNNRegressor},
		{Factory: "logistic", TaskType: plugin.Classification,
			Defaults: map[string]any{"C": 1.0, "max_iter": 1000, "tol": 1e-4, "random_state": 42},
			build:    buildLogistic},
		{Factory: "knn", TaskType: plugin.Classification,
			Defaults: map[string]any{"n_neighbors": 5, "weights": neighbors.WeightsUniform},
			build:    buildKNNClassifier},
		{Factory: "decision_tree", TaskType: plugin.Classification,
			Defaults: map[string]any{"criterion": tree.CriterionGini, "max_depth": 0, "random_state": 42},
			build:    buildTreeClassifier},
		{Factory: "random_forest", TaskType: plugin.Classification,
			Defaults: map[string]any{"n_estimators": 100, "criterion": tree.CriterionGini, "random_state": 42},
			build:    buildForestClassifier},
	}
}

// Register adds every built-in factory to f.
func Register(f *plugin.Factories) error {
	for _, e := range Catalogue() {
		if err := f.Register(e.Factory, e.factory()); err != nil {
			return err
		}
	}
	return nil
}

// Factories returns a registration list holding only the built-ins.
func Factories() *plugin.Factories {
	f := plugin.NewFactories()
	if err := Register(f); err != nil {
		// names in Catalogue are unique
		panic(err)
	}
	return f
}

// factory validates hyperparameters eagerly by building once, so a bad
// manifest fails at discovery instead of at training.
func (e Entry) factory() plugin.FactoryFunc {
	return func(hp map[string]any) (plugin.Model, error) {
		merged := merge(e.Defaults, hp)
		if _, err := e.build(merged); err != nil {
			return nil, err
		}
		return &estimatorPlugin{entry: e, hyperparams: merged}, nil
	}
}

func buildLinear(hp map[string]any) (model.Estimator, error) {
	r := &reader{hp: hp}
	est := linear.NewLinearRegression(linear.WithFitIntercept(r.boolOr("fit_intercept", true)))
	return est, r.err
}

func buildRidge(hp map[string]any) (model.Estimator, error) {
	r := &reader{hp: hp}
	est := linear.NewRidge(
		linear.WithAlpha(r.floatOr("alpha", 1)),
		linear.WithFitIntercept(r.boolOr("fit_intercept", true)),
	)
	return est, r.err
}

func buildLasso(hp map[string]any) (model.Estimator, error) {
	r := &reader{hp: hp}
	est := linear.NewLasso(
		linear.WithAlpha(r.floatOr("alpha", 0.1)),
		linear.WithFitIntercept(r.boolOr("fit_intercept", true)),
		linear.WithMaxIter(r.intOr("max_iter", 1000)),
		linear.WithTol(r.floatOr("tol", 1e-4)),
	)
	return est, r.err
}

func buildElasticNet(hp map[string]any) (model.Estimator, error) {
	r := &reader{hp: hp}
	est := linear.NewElasticNet(
		linear.WithAlpha(r.floatOr("alpha", 0.1)),
		linear.WithL1Ratio(r.floatOr("l1_ratio", 0.5)),
		linear.WithFitIntercept(r.boolOr("fit_intercept", true)),
		linear.WithMaxIter(r.intOr("max_iter", 1000)),
		linear.WithTol(r.floatOr("tol", 1e-4)),
	)
	return est, r.err
}

func buildLogistic(hp map[string]any) (model.Estimator, error) {
	r := &reader{hp: hp}
	est := linear.NewLogisticRegression(
		linear.WithC(r.floatOr("C", 1)),
		linear.WithFitIntercept(r.boolOr("fit_intercept", true)),
		linear.WithMaxIter(r.intOr("max_iter", 1000)),
		linear.WithTol(r.floatOr("tol", 1e-4)),
		linear.WithRandomState(int64(r.intOr("random_state", 42))),
	)
	return est, r.err
}

func buildTreeRegressor(hp map[string]any) (model.Estimator, error) {
	est := tree.NewDecisionTreeRegressor()
	return est, est.SetParams(hp)
}

func buildTreeClassifier(hp map[string]any) (model.Estimator, error) {
	est := tree.NewDecisionTreeClassifier()
	return est, est.SetParams(hp)
}

func buildForestRegressor(hp map[string]any) (model.Estimator, error) {
	est := tree.NewRandomForestRegressor()
	return est, est.SetParams(hp)
}

func buildForestClassifier(hp map[string]any) (model.Estimator, error) {
	est := tree.NewRandomForestClassifier()
	return est, est.SetParams(hp)
}

func neighborOptions(hp map[string]any) ([]neighbors.Option, error) {
	r := &reader{hp: hp}
	opts := []neighbors.Option{
		neighbors.WithNNeighbors(r.intOr("n_neighbors", 5)),
		neighbors.WithWeights(r.stringOr("weights", neighbors.WeightsUniform)),
		neighbors.WithP(r.floatOr("p", 2)),
	}
	return opts, r.err
}

func buildKNNRegressor(hp map[string]any) (model.Estimator, error) {
	opts, err := neighborOptions(hp)
	return neighbors.NewKNeighborsRegressor(opts...), err
}

func buildKNNClassifier(hp map[string]any) (model.Estimator, error) {
	opts, err := neighborOptions(hp)
	return neighbors.NewKNeighborsClassifier(opts...), err
}
