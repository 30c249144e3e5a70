package neighbors

import (
	"sort"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"gonum.org/v1/gonum/mat"
)

// KNeighborsClassifier votes among the k nearest training points.
type KNeighborsClassifier struct {
	Index
	ClassLabels []int
}

// NewKNeighborsClassifier creates an unfitted classifier with k=5.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	return &KNeighborsClassifier{Index: Index{Params: newParams(opts), State: model.NewStateManager()}}
}

// Fit memorizes X and the class labels in the first column of y.
func (kn *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if err := kn.fit("KNeighborsClassifier.Fit", X, y); err != nil {
		return err
	}
	seen := make(map[int]struct{})
	for _, t := range kn.Targets {
		seen[int(t[0])] = struct{}{}
	}
	kn.ClassLabels = kn.ClassLabels[:0]
	for l := range seen {
		kn.ClassLabels = append(kn.ClassLabels, l)
	}
	sort.Ints(kn.ClassLabels)
	return nil
}

// PredictProba returns the weighted vote share of every class.
func (kn *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := kn.check("KNeighborsClassifier", "PredictProba", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	col := make(map[int]int, len(kn.ClassLabels))
	for j, l := range kn.ClassLabels {
		col[l] = j
	}
	out := mat.NewDense(n, len(kn.ClassLabels), nil)
	kn.each(X, func(i int, nn []neighbour) {
		row := out.RawRowView(i)
		var total float64
		for _, nb := range nn {
			row[col[int(kn.Targets[nb.i][0])]] += nb.weight
			total += nb.weight
		}
		for j := range row {
			row[j] /= total
		}
	})
	return out, nil
}

// Predict returns the winning class per row. Ties go to the smaller label.
func (kn *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := kn.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(kn.ClassLabels[best]))
	}
	return out, nil
}

// Classes returns the sorted labels seen during Fit.
func (kn *KNeighborsClassifier) Classes() []int { return append([]int(nil), kn.ClassLabels...) }

// KNeighborsRegressor averages the targets of the k nearest training points.
type KNeighborsRegressor struct {
	Index
}

// NewKNeighborsRegressor creates an unfitted regressor with k=5.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	return &KNeighborsRegressor{Index: Index{Params: newParams(opts), State: model.NewStateManager()}}
}

// Fit memorizes X and y.
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	return kn.fit("KNeighborsRegressor.Fit", X, y)
}

// Predict returns the weighted neighbour mean, one column per output.
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := kn.check("KNeighborsRegressor", "Predict", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	_, _, k := kn.State.Dimensions()
	out := mat.NewDense(n, k, nil)
	kn.each(X, func(i int, nn []neighbour) {
		row := out.RawRowView(i)
		var total float64
		for _, nb := range nn {
			for j, v := range kn.Targets[nb.i] {
				row[j] += nb.weight * v
			}
			total += nb.weight
		}
		for j := range row {
			row[j] /= total
		}
	})
	return out, nil
}
