// Package tree implements CART decision trees and random forests for
// classification and regression. Fitted models are plain data (a flat node
// slice) so they gob-encode without custom marshalling.
package tree

import (
	"math"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
	CriterionMSE     = "squared_error"
)

// Max feature strategies. An empty string considers every feature.
const (
	MaxFeaturesAll  = ""
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

// Params are the hyperparameters shared by trees and forests.
type Params struct {
	Criterion       string
	MaxDepth        int // 0 grows until leaves are pure
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	RandomState     int64 // negative is unseeded

	// forests only
	NEstimators int
	Bootstrap   bool
}

func defaultParams(criterion string) Params {
	return Params{
		Criterion:       criterion,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     -1,
		NEstimators:     100,
		Bootstrap:       true,
	}
}

// Option configures a tree or forest.
type Option func(*Params)

// WithCriterion sets the impurity measure.
func WithCriterion(c string) Option { return func(p *Params) { p.Criterion = c } }

// WithMaxDepth limits the depth of the tree; 0 means unlimited.
func WithMaxDepth(d int) Option { return func(p *Params) { p.MaxDepth = d } }

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option { return func(p *Params) { p.MinSamplesSplit = n } }

// WithMinSamplesLeaf sets the smallest allowed leaf.
func WithMinSamplesLeaf(n int) Option { return func(p *Params) { p.MinSamplesLeaf = n } }

// WithMaxFeatures sets how many features each split considers.
func WithMaxFeatures(s string) Option { return func(p *Params) { p.MaxFeatures = s } }

// WithRandomState seeds feature sampling and bootstrapping.
func WithRandomState(seed int64) Option { return func(p *Params) { p.RandomState = seed } }

// WithNEstimators sets the number of trees in a forest.
func WithNEstimators(n int) Option { return func(p *Params) { p.NEstimators = n } }

// WithBootstrap toggles bootstrap sampling in a forest.
func WithBootstrap(b bool) Option { return func(p *Params) { p.Bootstrap = b } }

func (p Params) validate(classification bool) error {
	switch p.Criterion {
	case CriterionGini, CriterionEntropy:
		if !classification {
			return errors.NewValidationError("criterion", "classification criterion on a regressor", p.Criterion)
		}
	case CriterionMSE:
		if classification {
			return errors.NewValidationError("criterion", "regression criterion on a classifier", p.Criterion)
		}
	default:
		return errors.NewValidationError("criterion", "unknown criterion", p.Criterion)
	}
	if p.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	}
	switch p.MaxFeatures {
	case MaxFeaturesAll, MaxFeaturesSqrt, MaxFeaturesLog2:
	default:
		return errors.NewValidationError("max_features", "must be empty, sqrt or log2", p.MaxFeatures)
	}
	return nil
}

// featuresPerSplit resolves MaxFeatures against p features.
func (p Params) featuresPerSplit(nFeatures int) int {
	var k int
	switch p.MaxFeatures {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Set updates fields from a loosely typed map such as decoded YAML.
// Unknown keys are ignored.
func (p *Params) Set(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "criterion":
			p.Criterion, err = asString(key, v)
		case "max_features":
			p.MaxFeatures, err = asString(key, v)
		case "max_depth":
			p.MaxDepth, err = asInt(key, v)
		case "min_samples_split":
			p.MinSamplesSplit, err = asInt(key, v)
		case "min_samples_leaf":
			p.MinSamplesLeaf, err = asInt(key, v)
		case "n_estimators":
			p.NEstimators, err = asInt(key, v)
		case "random_state":
			var seed int
			seed, err = asInt(key, v)
			p.RandomState = int64(seed)
		case "bootstrap":
			b, ok := v.(bool)
			if !ok {
				err = errors.NewValidationError(key, "must be a bool", v)
			}
			p.Bootstrap = b
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p Params) asMap() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.Criterion,
		"max_depth":         p.MaxDepth,
		"min_samples_split": p.MinSamplesSplit,
		"min_samples_leaf":  p.MinSamplesLeaf,
		"max_features":      p.MaxFeatures,
		"random_state":      p.RandomState,
	}
}

func asString(key string, v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(key, "must be a string", v)
	}
	return s, nil
}

func asInt(key string, v interface{}) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, errors.NewValidationError(key, "must be an integer", v)
		}
		return int(n), nil
	default:
		return 0, errors.NewValidationError(key, "must be an integer", v)
	}
}
