package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier is an estimator that predicts class labels.
type Classifier interface {
	Estimator

	// PredictProba returns one column per class, ordered as Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the labels seen during Fit, sorted ascending.
	Classes() []int
}

// ParameterGetter exposes hyperparameters; the built-in plugins copy them
// into result metadata.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
