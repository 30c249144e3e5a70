package tree

import (
	"github.com/YuminosukeSato/scigo-automl/core/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DecisionTreeRegressor is a CART regressor minimizing squared error. Multi
// column y is predicted jointly from shared splits.
type DecisionTreeRegressor struct {
	Params
	State *model.StateManager

	Tree *Tree
}

// NewDecisionTreeRegressor creates an unfitted regressor.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	p := defaultParams(CriterionMSE)
	for _, opt := range opts {
		opt(&p)
	}
	return &DecisionTreeRegressor{Params: p, State: model.NewStateManager()}
}

// Fit grows the tree on every sample of X.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	n, p, err := checkXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.validate(false); err != nil {
		return err
	}
	rows, k := targetRows(y)
	dt.Tree = grow(X, sequence(n), newMSECriterion(rows, k), dt.Params, newRand(dt.RandomState))
	dt.State.SetFitted(n, p, k)
	return nil
}

// Predict returns the leaf mean for each row, one column per output.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.State.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	_, _, k := dt.State.Dimensions()
	return leafValues("DecisionTreeRegressor.Predict", dt.State, []*Tree{dt.Tree}, k, X)
}

// Score returns R^2 of the first output and 0 if prediction fails.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	return r2(pred, y)
}

// FeatureImportances implements model.FeatureImportancer.
func (dt *DecisionTreeRegressor) FeatureImportances() []float64 {
	if dt.Tree == nil {
		return nil
	}
	return append([]float64(nil), dt.Tree.Importances...)
}

// GetDepth returns the fitted depth, or 0 before Fit.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Depth()
}

// GetParams implements model.ParameterGetter.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} { return dt.asMap() }

// SetParams updates hyperparameters from a loosely typed map.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	return dt.Set(params)
}

func targetRows(y mat.Matrix) ([][]float64, int) {
	n, k := y.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, y)
	}
	return rows, k
}

func r2(pred, y mat.Matrix) float64 {
	yt := mat.Col(nil, 0, y)
	yp := mat.Col(nil, 0, pred)
	return stat.RSquaredFrom(yp, yt, nil)
}
