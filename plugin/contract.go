// Package plugin defines the contract every model plugin satisfies and the
// registry that discovers plugin units in a directory at runtime.
//
// A unit is either a YAML manifest bound to a factory registered in
// Factories, or a Go shared object opened with the standard plugin package.
// Either way it must expose three symbols:
//
//	Name               string
//	SupportedTaskTypes []string
//	Model              plugin.Model (or func() plugin.Model)
package plugin

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// TaskType is a learning problem kind.
type TaskType string

const (
	Regression     TaskType = "regression"
	Classification TaskType = "classification"
	Clustering     TaskType = "clustering"
)

// KnownTaskTypes lists every TaskType a unit may declare.
var KnownTaskTypes = []TaskType{Regression, Classification, Clustering}

// Valid reports whether t is one of KnownTaskTypes.
func (t TaskType) Valid() bool {
	for _, k := range KnownTaskTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Metric splits.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// TrainInput is everything a plugin receives for one training call. XVal and
// YVal may be nil.
type TrainInput struct {
	XTrain, YTrain *mat.Dense
	XVal, YVal     *mat.Dense

	// SavePath is where the plugin should persist its fitted model.
	SavePath string
	// Scale asks the plugin to standardize features itself.
	Scale bool
	// Config carries free-form plugin configuration, such as manifest
	// hyperparameter overrides.
	Config map[string]any
}

// HasVal reports whether a validation split was supplied.
func (in TrainInput) HasVal() bool { return in.XVal != nil && in.YVal != nil }

// Output is what a successful Train returns. Metrics maps a split ("train",
// "val") to metric name to value; "train" is mandatory. A nil Metadata is
// accepted and the trainer fills in the required keys.
type Output struct {
	Handle   any
	Metrics  map[string]map[string]float64
	Metadata map[string]any
}

// Model is the train capability a plugin exposes.
type Model interface {
	Train(ctx context.Context, in TrainInput) (*Output, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, in TrainInput) (*Output, error)

// Train calls f.
func (f ModelFunc) Train(ctx context.Context, in TrainInput) (*Output, error) { return f(ctx, in) }

// Descriptor is a validated plugin ready to train.
type Descriptor struct {
	Name      string
	TaskTypes []TaskType
	Model     Model
	// Source is the unit file the plugin was loaded from.
	Source string
	// Index is the position in discovery order after task filtering.
	Index int
}

// Supports reports whether the plugin declares t.
func (d Descriptor) Supports(t TaskType) bool {
	for _, tt := range d.TaskTypes {
		if tt == t {
			return true
		}
	}
	return false
}
