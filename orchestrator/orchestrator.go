// Package orchestrator picks the trainer for a dataset's task type and runs
// it.
package orchestrator

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/dataset"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/training"
)

// Trainer trains every plugin for one task type.
type Trainer interface {
	TrainAll(ctx context.Context, XTrain, YTrain, XVal, YVal *mat.Dense) (*training.RunResults, error)
}

// TrainerFactory builds a trainer for a dataset. It receives the dataset so
// it can pass feature names on.
type TrainerFactory func(ds *dataset.Dataset) Trainer

// Orchestrator dispatches datasets to trainers by problem type.
type Orchestrator struct {
	factories map[plugin.TaskType]TrainerFactory
	logger    log.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTrainerFactory registers f for task type t, replacing any default.
func WithTrainerFactory(t plugin.TaskType, f TrainerFactory) Option {
	return func(o *Orchestrator) { o.factories[t] = f }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l log.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// New creates an orchestrator whose regression and classification trainers
// discover plugins with registry in pluginDir. trainerOpts apply to both.
func New(registry training.Discoverer, pluginDir string, trainerOpts []training.Option, opts ...Option) *Orchestrator {
	o := &Orchestrator{factories: map[plugin.TaskType]TrainerFactory{
		plugin.Regression: func(ds *dataset.Dataset) Trainer {
			withNames := append(append([]training.Option(nil), trainerOpts...),
				training.WithFeatureNames(ds.Metadata.FeatureNames))
			return training.NewRegressionTrainer(registry, pluginDir, withNames...)
		},
		plugin.Classification: func(*dataset.Dataset) Trainer {
			return training.NewClassificationTrainer(registry, pluginDir, trainerOpts...)
		},
	}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("orchestrator")
	}
	return o
}

// Supported lists the task types with a trainer, sorted.
func (o *Orchestrator) Supported() []string {
	out := make([]string, 0, len(o.factories))
	for t := range o.factories {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// Run trains the dataset with the trainer for its problem type. An
// unknown or empty problem type fails with UnsupportedTaskTypeError before
// any plugin is discovered.
func (o *Orchestrator) Run(ctx context.Context, ds *dataset.Dataset) (*training.RunResults, error) {
	if ds == nil {
		return nil, errors.NewValueError("Orchestrator.Run", "dataset is nil")
	}
	task := plugin.TaskType(ds.Metadata.ProblemType)
	factory, ok := o.factories[task]
	if !ok {
		err := errors.NewUnsupportedTaskTypeError(string(task), o.Supported())
		o.logger.Error("no trainer for task type", log.TaskTypeKey, string(task), log.ErrAttrKey, err)
		return nil, err
	}
	if ds.XTrain == nil || ds.YTrain == nil {
		return nil, errors.NewValueError("Orchestrator.Run", "dataset has no training split")
	}

	o.logger.Info("dispatching dataset", log.TaskTypeKey, string(task), log.DatasetKey, ds.Metadata.Source)
	return factory(ds).TrainAll(ctx, ds.XTrain, ds.YTrain, ds.XVal, ds.YVal)
}

// RunDir loads a processed dataset directory and runs it.
func (o *Orchestrator) RunDir(ctx context.Context, dir string) (*training.RunResults, error) {
	ds, err := dataset.Load(dir)
	if err != nil {
		return nil, err
	}
	if ds.Metadata.Source == "" {
		ds.Metadata.Source = dir
	}
	return o.Run(ctx, ds)
}
