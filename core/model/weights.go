package model

import (
	"fmt"
)

// Weight kinds.
const (
	WeightsLinear     = "linear"
	WeightsImportance = "importance"
)

// Weights is the coefficient or importance structure extracted from a fitted
// regression model and reported next to its metrics.
type Weights struct {
	// Kind is WeightsLinear or WeightsImportance.
	Kind string `json:"kind"`

	// Coefficients has one row per output (linear only).
	Coefficients [][]float64 `json:"coefficients,omitempty"`

	// Intercept has one entry per output (linear only).
	Intercept []float64 `json:"intercept,omitempty"`

	// Importances has one entry per feature (importance only).
	Importances []float64 `json:"feature_importances,omitempty"`

	// Features names the columns, when known.
	Features []string `json:"features,omitempty"`
}

// LinearWeights builds linear weights from a fitted LinearModel.
func LinearWeights(m LinearModel) *Weights {
	coef := m.Coefficients()
	rows := make([][]float64, len(coef))
	for i, row := range coef {
		rows[i] = append([]float64(nil), row...)
	}
	return &Weights{
		Kind:         WeightsLinear,
		Coefficients: rows,
		Intercept:    append([]float64(nil), m.Intercepts()...),
	}
}

// ImportanceWeights builds importance weights from a FeatureImportancer.
func ImportanceWeights(m FeatureImportancer) *Weights {
	return &Weights{
		Kind:        WeightsImportance,
		Importances: append([]float64(nil), m.FeatureImportances()...),
	}
}

// Validate checks that the weights are internally consistent.
func (w *Weights) Validate() error {
	switch w.Kind {
	case WeightsLinear:
		if len(w.Coefficients) == 0 {
			return fmt.Errorf("linear weights must have coefficients")
		}
		if len(w.Intercept) != len(w.Coefficients) {
			return fmt.Errorf("linear weights have %d coefficient rows but %d intercepts", len(w.Coefficients), len(w.Intercept))
		}
		n := len(w.Coefficients[0])
		for i, row := range w.Coefficients {
			if len(row) != n {
				return fmt.Errorf("coefficient row %d has %d entries, want %d", i, len(row), n)
			}
		}
		if len(w.Features) > 0 && len(w.Features) != n {
			return fmt.Errorf("%d feature names for %d coefficients", len(w.Features), n)
		}
	case WeightsImportance:
		if len(w.Importances) == 0 {
			return fmt.Errorf("importance weights must have importances")
		}
		if len(w.Features) > 0 && len(w.Features) != len(w.Importances) {
			return fmt.Errorf("%d feature names for %d importances", len(w.Features), len(w.Importances))
		}
	default:
		return fmt.Errorf("unknown weights kind %q", w.Kind)
	}
	return nil
}

// CoefficientMap maps feature names to the first output's coefficients and
// adds the intercept under "intercept". Features without a name are keyed
// "x<i>". It returns nil for non-linear weights.
func (w *Weights) CoefficientMap(features []string) map[string]float64 {
	if w == nil || w.Kind != WeightsLinear || len(w.Coefficients) == 0 {
		return nil
	}
	out := make(map[string]float64, len(w.Coefficients[0])+1)
	for i, c := range w.Coefficients[0] {
		name := fmt.Sprintf("x%d", i)
		if i < len(features) && features[i] != "" {
			name = features[i]
		}
		out[name] = c
	}
	if len(w.Intercept) > 0 {
		out["intercept"] = w.Intercept[0]
	}
	return out
}

// Clone returns a deep copy.
func (w *Weights) Clone() *Weights {
	if w == nil {
		return nil
	}
	clone := &Weights{
		Kind:        w.Kind,
		Intercept:   append([]float64(nil), w.Intercept...),
		Importances: append([]float64(nil), w.Importances...),
		Features:    append([]string(nil), w.Features...),
	}
	if w.Coefficients != nil {
		clone.Coefficients = make([][]float64, len(w.Coefficients))
		for i, row := range w.Coefficients {
			clone.Coefficients[i] = append([]float64(nil), row...)
		}
	}
	return clone
}
