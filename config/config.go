// Package config loads automl settings from defaults, an optional YAML file
// and AUTOML_* environment variables, in increasing precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/YuminosukeSato/scigo-automl/dataset"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/selection"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTOML_"

const maxConfigFileSize = 1 << 20

// Config is the full automl configuration.
type Config struct {
	Plugins    PluginsConfig    `koanf:"plugins" json:"plugins"`
	Paths      PathsConfig      `koanf:"paths" json:"paths"`
	Scoring    ScoringConfig    `koanf:"scoring" json:"scoring"`
	Preprocess PreprocessConfig `koanf:"preprocess" json:"preprocess"`
	Log        LogConfig        `koanf:"log" json:"log"`
	Store      StoreConfig      `koanf:"store" json:"store"`
	Server     ServerConfig     `koanf:"server" json:"server"`
}

// PluginsConfig controls discovery and training.
type PluginsConfig struct {
	Dir         string        `koanf:"dir" json:"dir"`
	Strict      bool          `koanf:"strict" json:"strict"`
	Workers     int           `koanf:"workers" json:"workers"`
	Timeout     time.Duration `koanf:"timeout" json:"timeout"`
	ArtifactExt string        `koanf:"artifact_ext" json:"artifact_ext"`
	// Scale asks plugins to standardize their own inputs.
	Scale bool `koanf:"scale" json:"scale"`
	// Seed writes the built-in manifests when Dir does not exist.
	Seed bool `koanf:"seed" json:"seed"`
}

// PathsConfig holds output locations.
type PathsConfig struct {
	OutputDir    string `koanf:"output_dir" json:"output_dir"`
	ResultsDir   string `koanf:"results_dir" json:"results_dir"`
	ProcessedDir string `koanf:"processed_dir" json:"processed_dir"`
}

// ScoringConfig holds the selection weights.
type ScoringConfig struct {
	Regression     selection.RegressionWeights     `koanf:"regression" json:"regression"`
	Classification selection.ClassificationWeights `koanf:"classification" json:"classification"`
}

// PreprocessConfig holds cleaning and feature processing settings.
type PreprocessConfig struct {
	TestSize                float64 `koanf:"test_size" json:"test_size"`
	RandomState             int64   `koanf:"random_state" json:"random_state"`
	ClassificationThreshold int     `koanf:"classification_threshold" json:"classification_threshold"`
	RatioThreshold          float64 `koanf:"ratio_threshold" json:"ratio_threshold"`
	CorrThreshold           float64 `koanf:"corr_threshold" json:"corr_threshold"`
	PCAVariance             float64 `koanf:"pca_variance" json:"pca_variance"`
	CategoricalMaxUnique    int     `koanf:"categorical_max_unique" json:"categorical_max_unique"`
	Scale                   bool    `koanf:"scale" json:"scale"`
	OutlierMinUnique        int     `koanf:"outlier_min_unique" json:"outlier_min_unique"`
	IQRFactor               float64 `koanf:"iqr_factor" json:"iqr_factor"`
}

// LogConfig selects the log level and format ("json" or "console").
type LogConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

// StoreConfig locates the run history database. An empty path disables it.
type StoreConfig struct {
	Path string `koanf:"path" json:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string `koanf:"addr" json:"addr"`
	MaxUploadMB       int    `koanf:"max_upload_mb" json:"max_upload_mb"`
	MaxConcurrentRuns int    `koanf:"max_concurrent_runs" json:"max_concurrent_runs"`
}

// Default returns the built-in configuration.
func Default() Config {
	clean := dataset.DefaultCleanOptions()
	proc := dataset.DefaultProcessOptions()
	return Config{
		Plugins: PluginsConfig{
			Dir:         "plugins",
			Workers:     1,
			ArtifactExt: "gob",
			Seed:        true,
		},
		Paths: PathsConfig{
			OutputDir:    "artifacts",
			ResultsDir:   "results",
			ProcessedDir: "processed",
		},
		Scoring: ScoringConfig{
			Regression:     selection.DefaultRegressionWeights(),
			Classification: selection.DefaultClassificationWeights(),
		},
		Preprocess: PreprocessConfig{
			TestSize:                proc.TestSize,
			RandomState:             proc.RandomState,
			ClassificationThreshold: proc.ClassificationThreshold,
			RatioThreshold:          proc.RatioThreshold,
			CorrThreshold:           proc.CorrThreshold,
			PCAVariance:             proc.PCAVariance,
			CategoricalMaxUnique:    proc.CategoricalMaxUnique,
			Scale:                   proc.Scale,
			OutlierMinUnique:        clean.OutlierMinUnique,
			IQRFactor:               clean.IQRFactor,
		},
		Log:    LogConfig{Level: "info", Format: "console"},
		Store:  StoreConfig{Path: "automl.db"},
		Server: ServerConfig{Addr: ":8080", MaxUploadMB: 64, MaxConcurrentRuns: 1},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment overrides")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat config file")
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.Newf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return content, nil
}

// envKey maps AUTOML_SECTION_FIELD_NAME to section.field_name. Scoring has
// one more level: AUTOML_SCORING_REGRESSION_MSE is scoring.regression.mse.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	if parts[0] == "scoring" {
		if sub := strings.SplitN(parts[1], "_", 2); len(sub) == 2 {
			return "scoring." + sub[0] + "." + sub[1]
		}
	}
	return parts[0] + "." + parts[1]
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	p := c.Preprocess
	switch {
	case c.Plugins.Dir == "":
		return errors.NewValidationError("plugins.dir", "must not be empty", c.Plugins.Dir)
	case c.Plugins.Workers < 1:
		return errors.NewValidationError("plugins.workers", "must be at least 1", c.Plugins.Workers)
	case c.Plugins.Timeout < 0:
		return errors.NewValidationError("plugins.timeout", "must not be negative", c.Plugins.Timeout)
	case strings.ContainsAny(c.Plugins.ArtifactExt, `/\`):
		return errors.NewValidationError("plugins.artifact_ext", "must not contain path separators", c.Plugins.ArtifactExt)
	case p.TestSize <= 0 || p.TestSize >= 1:
		return errors.NewValidationError("preprocess.test_size", "must be in (0, 1)", p.TestSize)
	case p.ClassificationThreshold < 0:
		return errors.NewValidationError("preprocess.classification_threshold", "must not be negative", p.ClassificationThreshold)
	case p.RatioThreshold < 0 || p.RatioThreshold > 1:
		return errors.NewValidationError("preprocess.ratio_threshold", "must be in [0, 1]", p.RatioThreshold)
	case p.CorrThreshold < 0 || p.CorrThreshold > 1:
		return errors.NewValidationError("preprocess.corr_threshold", "must be in [0, 1]", p.CorrThreshold)
	case p.PCAVariance < 0 || p.PCAVariance > 1:
		return errors.NewValidationError("preprocess.pca_variance", "must be in [0, 1]", p.PCAVariance)
	case p.IQRFactor < 0:
		return errors.NewValidationError("preprocess.iqr_factor", "must not be negative", p.IQRFactor)
	case c.Server.MaxUploadMB < 1:
		return errors.NewValidationError("server.max_upload_mb", "must be at least 1", c.Server.MaxUploadMB)
	case c.Server.MaxConcurrentRuns < 1:
		return errors.NewValidationError("server.max_concurrent_runs", "must be at least 1", c.Server.MaxConcurrentRuns)
	}
	for name, w := range map[string]float64{
		"scoring.regression.mse": c.Scoring.Regression.MSE, "scoring.regression.rmse": c.Scoring.Regression.RMSE,
		"scoring.regression.mae": c.Scoring.Regression.MAE, "scoring.regression.r2": c.Scoring.Regression.R2,
		"scoring.classification.f1": c.Scoring.Classification.F1, "scoring.classification.accuracy": c.Scoring.Classification.Accuracy,
		"scoring.classification.precision": c.Scoring.Classification.Precision, "scoring.classification.recall": c.Scoring.Classification.Recall,
	} {
		if w < 0 {
			return errors.NewValidationError(name, "must not be negative", w)
		}
	}
	return nil
}

// CleanOptions returns the cleaning settings. keep lists columns exempt
// from outlier trimming.
func (c *Config) CleanOptions(keep ...string) dataset.CleanOptions {
	return dataset.CleanOptions{
		OutlierMinUnique: c.Preprocess.OutlierMinUnique,
		IQRFactor:        c.Preprocess.IQRFactor,
		Keep:             keep,
	}
}

// ProcessOptions returns the feature processing settings for one run.
func (c *Config) ProcessOptions(target, problemType string) dataset.ProcessOptions {
	p := c.Preprocess
	return dataset.ProcessOptions{
		Target:                  target,
		ProblemType:             problemType,
		TestSize:                p.TestSize,
		RandomState:             p.RandomState,
		ClassificationThreshold: p.ClassificationThreshold,
		RatioThreshold:          p.RatioThreshold,
		CorrThreshold:           p.CorrThreshold,
		PCAVariance:             p.PCAVariance,
		CategoricalMaxUnique:    p.CategoricalMaxUnique,
		Scale:                   p.Scale,
	}
}

// Scorer returns a scorer with the configured weights.
func (c *Config) Scorer() *selection.Scorer {
	s := selection.NewScorer()
	s.Regression = c.Scoring.Regression
	s.Classification = c.Scoring.Classification
	return s
}
