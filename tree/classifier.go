package tree

import (
	"sort"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeClassifier is a CART classifier over integer class labels.
type DecisionTreeClassifier struct {
	Params
	State *model.StateManager

	Tree        *Tree
	ClassLabels []int
}

// NewDecisionTreeClassifier creates an unfitted classifier using Gini
// impurity by default.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	p := defaultParams(CriterionGini)
	for _, opt := range opts {
		opt(&p)
	}
	return &DecisionTreeClassifier{Params: p, State: model.NewStateManager()}
}

// Fit grows the tree on every sample of X.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	n, p, err := checkXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.validate(true); err != nil {
		return err
	}

	labels, encoded := encodeLabels(y)
	dt.ClassLabels = labels

	crit := newClassCriterion(encoded, len(labels), dt.Criterion == CriterionEntropy)
	dt.Tree = grow(X, sequence(n), crit, dt.Params, newRand(dt.RandomState))
	dt.State.SetFitted(n, p, 1)
	return nil
}

// PredictProba returns class proportions of each row's leaf, one column per
// entry of Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.State.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	return leafValues("DecisionTreeClassifier.PredictProba", dt.State, []*Tree{dt.Tree}, len(dt.ClassLabels), X)
}

// Predict returns the majority class of each row's leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, dt.ClassLabels), nil
}

// Score returns mean accuracy on X, y and 0 if prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	return accuracy(pred, y)
}

// Classes returns the sorted labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []int { return append([]int(nil), dt.ClassLabels...) }

// FeatureImportances implements model.FeatureImportancer.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	if dt.Tree == nil {
		return nil
	}
	return append([]float64(nil), dt.Tree.Importances...)
}

// GetFeatureImportances is an alias of FeatureImportances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 { return dt.FeatureImportances() }

// GetDepth returns the fitted depth, or 0 before Fit.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Depth()
}

// GetNLeaves returns the fitted leaf count, or 0 before Fit.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Leaves()
}

// GetParams implements model.ParameterGetter.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} { return dt.asMap() }

// SetParams updates hyperparameters from a loosely typed map.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	return dt.Set(params)
}

func checkXY(op string, X, y mat.Matrix) (n, p int, err error) {
	n, p = X.Dims()
	ry, k := y.Dims()
	if n == 0 || p == 0 || k == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return 0, 0, errors.NewDimensionError(op, n, ry, 0)
	}
	return n, p, nil
}

// encodeLabels maps the first column of y onto 0..k-1 in sorted label order.
func encodeLabels(y mat.Matrix) ([]int, []int) {
	n, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < n; i++ {
		seen[int(y.At(i, 0))] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	encoded := make([]int, n)
	for i := 0; i < n; i++ {
		encoded[i] = index[int(y.At(i, 0))]
	}
	return labels, encoded
}

func sequence(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// leafValues averages the leaf values of trees for every row of X.
func leafValues(op string, state *model.StateManager, trees []*Tree, width int, X mat.Matrix) (*mat.Dense, error) {
	n, c := X.Dims()
	if err := state.CheckFeatures(op, c); err != nil {
		return nil, err
	}
	out := mat.NewDense(n, width, nil)
	row := make([]float64, c)
	scale := 1 / float64(len(trees))
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		acc := out.RawRowView(i)
		for _, t := range trees {
			for k, v := range t.leaf(row) {
				acc[k] += v * scale
			}
		}
	}
	return out, nil
}

func argmaxLabels(proba mat.Matrix, labels []int) *mat.Dense {
	n, k := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(labels[best]))
	}
	return out
}

func accuracy(pred, y mat.Matrix) float64 {
	n, _ := y.Dims()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}
