// Package training runs every discovered plugin against one dataset and
// collects their results. A plugin failure never aborts the batch: errors,
// panics, timeouts and malformed outputs all become error results.
package training

import (
	"context"
	"encoding/json"
	"os"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/core/parallel"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
)

// DefaultArtifactExt is the artifact file extension when none is configured.
const DefaultArtifactExt = "gob"

// Discoverer finds the plugins that support a task type. *plugin.Registry
// implements it.
type Discoverer interface {
	Discover(ctx context.Context, dir string, taskType plugin.TaskType) ([]plugin.Descriptor, error)
}

// Trainer trains all plugins for one task type.
type Trainer struct {
	taskType  plugin.TaskType
	registry  Discoverer
	pluginDir string

	outputDir string
	ext       string
	workers   int
	timeout   time.Duration
	scale     bool
	weights   bool
	features  []string
	configs   map[string]map[string]any
	logger    log.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithOutputDir sets the directory artifacts are written to. Without one,
// plugins receive an empty save path and nothing is persisted.
func WithOutputDir(dir string) Option { return func(t *Trainer) { t.outputDir = dir } }

// WithArtifactExt sets the artifact extension, without the dot.
func WithArtifactExt(ext string) Option {
	return func(t *Trainer) { t.ext = strings.TrimPrefix(ext, ".") }
}

// WithWorkers sets how many plugins train concurrently. 1 is sequential.
func WithWorkers(n int) Option { return func(t *Trainer) { t.workers = n } }

// WithPluginTimeout bounds each plugin's Train call. Zero disables it.
func WithPluginTimeout(d time.Duration) Option { return func(t *Trainer) { t.timeout = d } }

// WithScale asks plugins to standardize their inputs.
func WithScale(scale bool) Option { return func(t *Trainer) { t.scale = scale } }

// WithWeightExtraction turns weight extraction on or off.
func WithWeightExtraction(on bool) Option { return func(t *Trainer) { t.weights = on } }

// WithFeatureNames names the feature columns in extracted weights.
func WithFeatureNames(names []string) Option {
	return func(t *Trainer) { t.features = append([]string(nil), names...) }
}

// WithPluginConfig passes cfg as TrainInput.Config to the named plugin.
func WithPluginConfig(name string, cfg map[string]any) Option {
	return func(t *Trainer) {
		if t.configs == nil {
			t.configs = map[string]map[string]any{}
		}
		t.configs[name] = cfg
	}
}

// WithLogger sets the trainer's logger.
func WithLogger(l log.Logger) Option { return func(t *Trainer) { t.logger = l } }

// NewTrainer creates a trainer that discovers plugins for taskType in
// pluginDir each time TrainAll runs.
func NewTrainer(taskType plugin.TaskType, registry Discoverer, pluginDir string, opts ...Option) *Trainer {
	t := &Trainer{
		taskType:  taskType,
		registry:  registry,
		pluginDir: pluginDir,
		ext:       DefaultArtifactExt,
		workers:   1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("trainer")
	}
	if t.ext == "" {
		t.ext = DefaultArtifactExt
	}
	return t
}

// NewRegressionTrainer creates a regression trainer with weight extraction.
func NewRegressionTrainer(registry Discoverer, pluginDir string, opts ...Option) *Trainer {
	return NewTrainer(plugin.Regression, registry, pluginDir,
		append([]Option{WithWeightExtraction(true)}, opts...)...)
}

// NewClassificationTrainer creates a classification trainer. Weights are
// never extracted for classifiers.
func NewClassificationTrainer(registry Discoverer, pluginDir string, opts ...Option) *Trainer {
	opts = append(append([]Option(nil), opts...), WithWeightExtraction(false))
	return NewTrainer(plugin.Classification, registry, pluginDir, opts...)
}

// TaskType returns the trainer's task type.
func (t *Trainer) TaskType() plugin.TaskType { return t.taskType }

// TrainAll discovers the plugins and trains each of them. XVal and YVal may
// be nil. The error is non-nil only when discovery fails, the output
// directory cannot be created, or ctx ends before every plugin started.
func (t *Trainer) TrainAll(ctx context.Context, XTrain, YTrain, XVal, YVal *mat.Dense) (*RunResults, error) {
	if XTrain == nil || YTrain == nil {
		return nil, errors.NewValueError("Trainer.TrainAll", "XTrain and YTrain are required")
	}

	descs, err := t.registry.Discover(ctx, t.pluginDir, t.taskType)
	if err != nil {
		return nil, err
	}
	if t.outputDir != "" {
		if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create output directory")
		}
	}

	nSamples, nFeatures := XTrain.Dims()
	t.logger.Info("training started",
		log.PhaseKey, log.PhaseTraining,
		log.TaskTypeKey, string(t.taskType),
		log.PluginCountKey, len(descs),
		log.WorkerCountKey, t.workers,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)

	start := time.Now()
	rr := &RunResults{TaskType: t.taskType, Results: make([]*Result, len(descs))}
	err = parallel.ForEach(ctx, len(descs), t.workers, func(ctx context.Context, i int) {
		rr.Results[i] = t.trainOne(ctx, descs[i], XTrain, YTrain, XVal, YVal)
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("training finished",
		log.PhaseKey, log.PhaseTraining,
		log.PluginCountKey, len(descs),
		"failures", rr.Failures(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return rr, nil
}

// trainOne never fails: every problem is folded into an error result.
func (t *Trainer) trainOne(ctx context.Context, d plugin.Descriptor, XTrain, YTrain, XVal, YVal *mat.Dense) *Result {
	logger := t.logger.With(log.PluginNameKey, d.Name, log.PluginIndexKey, d.Index)

	// each plugin gets its own copy so concurrent plugins cannot observe
	// each other's writes
	in := plugin.TrainInput{
		XTrain:   mat.DenseCopyOf(XTrain),
		YTrain:   mat.DenseCopyOf(YTrain),
		SavePath: t.artifactPath(d.Name),
		Scale:    t.scale,
		Config:   t.configs[d.Name],
	}
	if XVal != nil && YVal != nil {
		in.XVal, in.YVal = mat.DenseCopyOf(XVal), mat.DenseCopyOf(YVal)
	}

	start := time.Now()
	out, err := t.invoke(ctx, d, in)
	if err == nil {
		err = checkOutput(out)
	}
	elapsed := time.Since(start)

	if err != nil {
		status := log.StatusFailed
		if errors.Is(err, context.DeadlineExceeded) {
			status = log.StatusTimeout
		}
		observe(d.Name, status, elapsed)
		logger.Error("plugin training failed",
			log.ErrAttrKey, errors.NewTrainingError(d.Name, err),
			log.PluginStatusKey, status,
			log.DurationMsKey, elapsed.Milliseconds(),
		)
		return failed(d.Name, err)
	}

	nSamples, _ := XTrain.Dims()
	r := &Result{
		Name:     d.Name,
		Metrics:  Metrics(out.Metrics),
		Metadata: completeMetadata(out.Metadata, d.Name, nSamples),
		Handle:   out.Handle,
	}
	if out.Handle != nil && in.SavePath != "" {
		t.persist(logger, r, in.SavePath)
	}
	if t.weights && out.Handle != nil {
		r.Weights = extractWeights(out.Handle, t.features)
	}

	observe(d.Name, log.StatusOK, elapsed)
	logger.Info("plugin trained",
		log.PluginStatusKey, log.StatusOK,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return r
}

// invoke calls the plugin with panic recovery and, when configured, a
// deadline. A plugin that ignores its context keeps running in the
// background after the deadline, but its result is discarded.
func (t *Trainer) invoke(ctx context.Context, d plugin.Descriptor, in plugin.TrainInput) (*plugin.Output, error) {
	op := "plugin " + d.Name
	if t.timeout <= 0 {
		return errors.SafeValue(op, func() (*plugin.Output, error) { return d.Model.Train(ctx, in) })
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type outcome struct {
		out *plugin.Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := errors.SafeValue(op, func() (*plugin.Output, error) { return d.Model.Train(ctx, in) })
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "%s did not finish within %s", op, t.timeout)
	}
}

func checkOutput(out *plugin.Output) error {
	if out == nil {
		return errors.New("plugin returned no output")
	}
	if err := Metrics(out.Metrics).Validate(); err != nil {
		return err
	}
	if _, err := json.Marshal(out.Metadata); err != nil {
		return errors.Wrap(err, "plugin metadata is not JSON encodable")
	}
	return nil
}

func completeMetadata(meta map[string]any, name string, nSamples int) map[string]any {
	out := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	if _, ok := out["name"]; !ok {
		out["name"] = name
	}
	if _, ok := out["train_samples"]; !ok {
		out["train_samples"] = nSamples
	}
	if _, ok := out["hyperparams"]; !ok {
		out["hyperparams"] = map[string]any{}
	}
	return out
}

// persist writes the handle with gob when the plugin left nothing at path.
// Failures are logged only.
func (t *Trainer) persist(logger log.Logger, r *Result, path string) {
	if _, err := os.Stat(path); err == nil {
		if _, ok := r.Metadata["artifact"]; !ok {
			r.Metadata["artifact"] = path
		}
		return
	}
	err := errors.SafeExecute("persist "+r.Name, func() error { return model.SaveModel(r.Handle, path) })
	if err != nil {
		logger.Warn("fallback artifact persist failed", log.ArtifactPathKey, path, log.ErrAttrKey, err)
		return
	}
	r.Metadata["artifact"] = path
	logger.Debug("artifact persisted by trainer", log.ArtifactPathKey, path)
}

// artifactPath escapes name reversibly, so distinct plugin names never share
// a file and no name can leave outputDir.
func (t *Trainer) artifactPath(name string) string {
	if t.outputDir == "" {
		return ""
	}
	return filepath.Join(t.outputDir, url.PathEscape(name)+"."+t.ext)
}

// extractWeights returns linear weights for a LinearModel, importance
// weights for a FeatureImportancer and nil otherwise. A panicking accessor
// or inconsistent weights also yield nil.
func extractWeights(handle any, features []string) (w *model.Weights) {
	defer func() {
		if recover() != nil {
			w = nil
		}
	}()

	switch h := handle.(type) {
	case model.LinearModel:
		w = model.LinearWeights(h)
	case model.FeatureImportancer:
		w = model.ImportanceWeights(h)
	default:
		return nil
	}
	if w.Validate() != nil {
		return nil
	}
	width := len(w.Importances)
	if w.Kind == model.WeightsLinear {
		width = len(w.Coefficients[0])
	}
	if len(features) == width {
		w.Features = append([]string(nil), features...)
	}
	return w
}
