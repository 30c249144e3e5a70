package log

// Run and component context.
const (
	// RunIDKey identifies one end-to-end pipeline run.
	RunIDKey = "run.id"

	// ComponentKey names the emitting package, e.g. "registry" or "trainer".
	ComponentKey = "automl.component"

	// PhaseKey is one of the Phase* values below.
	PhaseKey = "automl.phase"

	// TaskTypeKey is the dataset problem type.
	TaskTypeKey = "task.type"

	// DatasetKey is the input file or processed directory.
	DatasetKey = "dataset.path"
)

// Plugin context.
const (
	PluginNameKey   = "plugin.name"
	PluginUnitKey   = "plugin.unit"
	PluginIndexKey  = "plugin.index"
	PluginStatusKey = "plugin.status"
	PluginCountKey  = "plugin.count"
	ArtifactPathKey = "plugin.artifact"
	ReasonKey       = "plugin.reason"
	StrictKey       = "registry.strict"
	ModelNameKey    = "model.name"
	HyperParamsKey  = "model.hyperparams"
	WorkerCountKey  = "trainer.workers"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetsKey  = "data.targets"
	RowsKey     = "data.rows"
	ColumnsKey  = "data.columns"
)

// Performance and results.
const (
	DurationMsKey = "perf.duration_ms"
	ScoreKey      = "selection.score"
	BestModelKey  = "selection.best_model"
	R2ScoreKey    = "metrics.r2"
	AccuracyKey   = "metrics.accuracy"
	IterationKey  = "training.iteration"
)

// Error context.
const (
	ErrAttrKey    = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	PhaseDiscovery     = "discovery"
	PhaseTraining      = "training"
	PhaseSelection     = "selection"
	PhasePreprocessing = "preprocessing"
	PhaseReporting     = "reporting"

	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
	StatusSkipped = "skipped"
)
