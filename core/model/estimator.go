// Package model defines the estimator interfaces shared by the built-in
// learners and the optional capabilities the trainer probes for when it
// extracts weights from a fitted model.
package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that learns from X and y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that produces predictions for X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model.
type Estimator interface {
	Fitter
	Predictor
}

// LinearModel is implemented by fitted models with a linear decision
// function. Coefficients has one row per output; Intercepts has one entry per
// output.
type LinearModel interface {
	Coefficients() [][]float64
	Intercepts() []float64
}

// FeatureImportancer is implemented by fitted models that can rank their
// input features, e.g. trees and forests. Importances sum to 1 when any
// split was made.
type FeatureImportancer interface {
	FeatureImportances() []float64
}
