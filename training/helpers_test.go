package training

import (
	"github.com/YuminosukeSato/scigo-automl/core/model"
)

var modelWeights = model.Weights{
	Kind:         model.WeightsLinear,
	Coefficients: [][]float64{{1.5, -2}},
	Intercept:    []float64{0.25},
}

func loadGob(dst any, path string) error { return model.LoadModel(dst, path) }
