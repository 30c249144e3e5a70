// Package pipeline runs an uploaded table end to end: ingest, clean,
// featurize, train every plugin for the inferred task type, select the best
// model and write the run's documents.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scigo-automl/config"
	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/dataset"
	"github.com/YuminosukeSato/scigo-automl/orchestrator"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/plugin/builtin"
	"github.com/YuminosukeSato/scigo-automl/report"
	"github.com/YuminosukeSato/scigo-automl/selection"
	"github.com/YuminosukeSato/scigo-automl/store"
	"github.com/YuminosukeSato/scigo-automl/training"
)

// Documents written into a run directory.
const (
	ResultsFile = "results.json"
	SummaryFile = "training_summary.json"
)

// Request names the input of one run.
type Request struct {
	File   string
	Target string
	// ProblemType overrides task type inference when set.
	ProblemType string
}

// Summary is the training_summary.json document.
type Summary struct {
	RunID        string                      `json:"run_id"`
	Dataset      string                      `json:"dataset"`
	ProblemType  string                      `json:"problem_type"`
	Target       string                      `json:"target"`
	BestModel    string                      `json:"best_model"`
	ModelScores  map[string]float64          `json:"model_scores"`
	Coefficients map[string]float64          `json:"coefficients,omitempty"`
	Metrics      map[string]training.Metrics `json:"metrics"`
	Failures     map[string]string           `json:"failures,omitempty"`
	Duration     float64                     `json:"duration_seconds"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// Report is what Run returns.
type Report struct {
	RunID        string
	RunDir       string
	ProcessedDir string
	Clean        *dataset.CleanReport
	Metadata     dataset.Metadata
	Results      *training.RunResults
	BestWeights  *model.Weights
	Summary      *Summary
	ChartPath    string
}

// Runner executes pipeline runs with one configuration.
type Runner struct {
	cfg      *config.Config
	registry training.Discoverer
	orchOpts []orchestrator.Option
	orch     *orchestrator.Orchestrator
	scorer   *selection.Scorer
	history  *store.Store
	logger   log.Logger
	newRunID func() string
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records every run in s.
func WithStore(s *store.Store) Option { return func(r *Runner) { r.history = s } }

// WithLogger sets the runner's logger.
func WithLogger(l log.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithRegistry replaces the plugin registry built from the configuration.
func WithRegistry(d training.Discoverer) Option { return func(r *Runner) { r.registry = d } }

// WithOrchestratorOptions passes options to the orchestrator, e.g. extra
// trainer factories.
func WithOrchestratorOptions(opts ...orchestrator.Option) Option {
	return func(r *Runner) { r.orchOpts = append(r.orchOpts, opts...) }
}

// New creates a runner. Without WithRegistry the runner discovers manifests
// in cfg.Plugins.Dir bound to the built-in factories.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:      cfg,
		scorer:   cfg.Scorer(),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("pipeline")
	}
	if r.registry == nil {
		r.registry = plugin.NewRegistry(
			plugin.WithStrict(cfg.Plugins.Strict),
			plugin.WithFactories(builtin.Factories()),
		)
	}
	trainerOpts := []training.Option{
		training.WithOutputDir(cfg.Paths.OutputDir),
		training.WithArtifactExt(cfg.Plugins.ArtifactExt),
		training.WithWorkers(cfg.Plugins.Workers),
		training.WithPluginTimeout(cfg.Plugins.Timeout),
		training.WithScale(cfg.Plugins.Scale),
	}
	r.orch = orchestrator.New(r.registry, cfg.Plugins.Dir, trainerOpts, r.orchOpts...)
	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Prepare ingests, cleans and featurizes req.File and saves the processed
// dataset under dir.
func (r *Runner) Prepare(req Request, dir string) (*dataset.Dataset, *dataset.CleanReport, error) {
	if req.File == "" {
		return nil, nil, errors.NewValueError("pipeline.Prepare", "no input file")
	}
	frame, err := dataset.ReadFile(req.File)
	if err != nil {
		return nil, nil, err
	}
	var keep []string
	if req.Target != "" {
		keep = []string{req.Target}
	}
	cleaned, cleanReport, err := dataset.Clean(frame, r.cfg.CleanOptions(keep...))
	if err != nil {
		return nil, nil, err
	}
	ds, err := dataset.Process(cleaned, r.cfg.ProcessOptions(req.Target, req.ProblemType))
	if err != nil {
		return nil, cleanReport, err
	}
	ds.Metadata.Source = filepath.Base(req.File)
	if dir != "" {
		if err := ds.Save(dir); err != nil {
			return nil, cleanReport, err
		}
	}
	return ds, cleanReport, nil
}

// Run executes one run. When training ran, results.json is written even if
// selection fails; the SelectionError is then returned with the report.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := r.now()
	runID := r.newRunID()
	logger := r.logger.With(log.RunIDKey, runID)
	rep := &Report{
		RunID:        runID,
		RunDir:       filepath.Join(r.cfg.Paths.ResultsDir, runID),
		ProcessedDir: filepath.Join(r.cfg.Paths.ProcessedDir, runID),
	}
	run := &store.Run{
		ID:          runID,
		CreatedAt:   start,
		Dataset:     filepath.Base(req.File),
		ProblemType: req.ProblemType,
		Target:      req.Target,
		Status:      store.StatusFailed,
	}
	defer func() {
		run.DurationMs = r.now().Sub(start).Milliseconds()
		r.record(logger, run)
	}()

	logger.Info("run started", log.DatasetKey, req.File)

	if r.cfg.Plugins.Seed {
		seeded, err := builtin.EnsureManifests(r.cfg.Plugins.Dir)
		if err != nil {
			run.Error = err.Error()
			return rep, errors.Wrap(err, "seed plugin manifests")
		}
		if seeded {
			logger.Info("seeded built-in plugin manifests", log.DatasetKey, r.cfg.Plugins.Dir)
		}
	}

	ds, cleanReport, err := r.Prepare(req, rep.ProcessedDir)
	rep.Clean = cleanReport
	if err != nil {
		run.Error = err.Error()
		logger.Error("preprocessing failed", log.PhaseKey, log.PhasePreprocessing, log.ErrAttrKey, err)
		return rep, err
	}
	rep.Metadata = ds.Metadata
	run.ProblemType = ds.Metadata.ProblemType

	rr, err := r.orch.Run(ctx, ds)
	if err != nil {
		run.Error = err.Error()
		return rep, err
	}
	rep.Results = rr

	weights, selErr := r.scorer.Apply(rr)
	rep.BestWeights = weights
	run.BestModel, run.ModelScores = rr.BestModel, rr.ModelScores
	if rr.BestModel != "" {
		run.BestScore = rr.ModelScores[rr.BestModel]
	}

	if err := os.MkdirAll(rep.RunDir, 0o755); err != nil {
		run.Error = err.Error()
		return rep, errors.Wrap(err, "create run directory")
	}
	resultsPath := filepath.Join(rep.RunDir, ResultsFile)
	if err := writeJSON(resultsPath, rr); err != nil {
		run.Error = err.Error()
		return rep, err
	}
	run.ResultsPath = resultsPath

	rep.Summary = r.summarize(runID, req, ds, rr, weights, start)
	if err := writeJSON(filepath.Join(rep.RunDir, SummaryFile), rep.Summary); err != nil {
		run.Error = err.Error()
		return rep, err
	}

	if selErr != nil {
		run.Error = selErr.Error()
		logger.Error("no model selected", log.PhaseKey, log.PhaseSelection, log.ErrAttrKey, selErr)
		return rep, selErr
	}

	chart := filepath.Join(rep.RunDir, report.ChartFile)
	if err := report.WriteScoreChart(rr, chart); err != nil {
		// the chart is informational; the run still succeeds
		logger.Warn("score chart not written", log.PhaseKey, log.PhaseReporting, log.ErrAttrKey, err)
	} else {
		rep.ChartPath = chart
	}

	run.Status = store.StatusSucceeded
	logger.Info("run finished",
		log.TaskTypeKey, ds.Metadata.ProblemType,
		log.BestModelKey, rr.BestModel,
		log.PluginCountKey, len(rr.Results),
		log.DurationMsKey, r.now().Sub(start).Milliseconds(),
	)
	return rep, nil
}

func (r *Runner) summarize(runID string, req Request, ds *dataset.Dataset, rr *training.RunResults,
	weights *model.Weights, start time.Time) *Summary {
	s := &Summary{
		RunID:       runID,
		Dataset:     filepath.Base(req.File),
		ProblemType: ds.Metadata.ProblemType,
		Target:      ds.Metadata.Target,
		BestModel:   rr.BestModel,
		ModelScores: rr.ModelScores,
		Metrics:     make(map[string]training.Metrics, len(rr.Results)),
		Duration:    r.now().Sub(start).Seconds(),
		CreatedAt:   start,
	}
	if ds.Metadata.ProblemType == string(plugin.Regression) {
		s.Coefficients = weights.CoefficientMap(ds.Metadata.FeatureNames)
	}
	for _, res := range rr.Results {
		if res.Failed() {
			if s.Failures == nil {
				s.Failures = map[string]string{}
			}
			s.Failures[res.Name] = res.Error
			continue
		}
		s.Metrics[res.Name] = res.Metrics
	}
	return s
}

func (r *Runner) record(logger log.Logger, run *store.Run) {
	if r.history == nil {
		return
	}
	// the run's own context may already be canceled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.history.Save(ctx, run); err != nil {
		logger.Warn("run history not recorded", log.ErrAttrKey, err)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
