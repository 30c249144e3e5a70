package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/selection"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "automl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "plugins", cfg.Plugins.Dir)
	assert.Equal(t, 1, cfg.Plugins.Workers)
	assert.Equal(t, "gob", cfg.Plugins.ArtifactExt)
	assert.Equal(t, selection.DefaultRegressionWeights(), cfg.Scoring.Regression)
	assert.Equal(t, selection.DefaultClassificationWeights(), cfg.Scoring.Classification)
	assert.InDelta(t, 0.2, cfg.Preprocess.TestSize, 1e-12)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
plugins:
  dir: /opt/plugins
  workers: 4
  timeout: 90s
  strict: true
scoring:
  regression:
    r2: 2.5
preprocess:
  test_size: 0.3
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/plugins", cfg.Plugins.Dir)
	assert.Equal(t, 4, cfg.Plugins.Workers)
	assert.Equal(t, 90*time.Second, cfg.Plugins.Timeout)
	assert.True(t, cfg.Plugins.Strict)
	assert.InDelta(t, 2.5, cfg.Scoring.Regression.R2, 1e-12)
	// untouched siblings keep their defaults
	assert.InDelta(t, selection.DefaultRegressionWeights().MSE, cfg.Scoring.Regression.MSE, 1e-12)
	assert.InDelta(t, 0.3, cfg.Preprocess.TestSize, 1e-12)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "results", cfg.Paths.ResultsDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "plugins:\n  workers: 4\n")
	t.Setenv("AUTOML_PLUGINS_WORKERS", "8")
	t.Setenv("AUTOML_PATHS_RESULTS_DIR", "/tmp/results")
	t.Setenv("AUTOML_SCORING_CLASSIFICATION_F1", "0.9")
	t.Setenv("AUTOML_SERVER_MAX_CONCURRENT_RUNS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Plugins.Workers)
	assert.Equal(t, "/tmp/results", cfg.Paths.ResultsDir)
	assert.InDelta(t, 0.9, cfg.Scoring.Classification.F1, 1e-12)
	assert.Equal(t, 3, cfg.Server.MaxConcurrentRuns)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "plugins: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "plugins:\n  workers: 0\n"))
	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "plugins.workers", verr.ParamName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"empty plugin dir", func(c *Config) { c.Plugins.Dir = "" }, "plugins.dir"},
		{"negative timeout", func(c *Config) { c.Plugins.Timeout = -time.Second }, "plugins.timeout"},
		{"ext with separator", func(c *Config) { c.Plugins.ArtifactExt = "a/b" }, "plugins.artifact_ext"},
		{"test size one", func(c *Config) { c.Preprocess.TestSize = 1 }, "preprocess.test_size"},
		{"pca above one", func(c *Config) { c.Preprocess.PCAVariance = 1.5 }, "preprocess.pca_variance"},
		{"negative weight", func(c *Config) { c.Scoring.Regression.MAE = -1 }, "scoring.regression.mae"},
		{"no upload room", func(c *Config) { c.Server.MaxUploadMB = 0 }, "server.max_upload_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			var verr *errors.ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.param, verr.ParamName)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "plugins.dir", envKey("AUTOML_PLUGINS_DIR"))
	assert.Equal(t, "paths.output_dir", envKey("AUTOML_PATHS_OUTPUT_DIR"))
	assert.Equal(t, "scoring.regression.rmse", envKey("AUTOML_SCORING_REGRESSION_RMSE"))
	assert.Equal(t, "debug", envKey("AUTOML_DEBUG"))
}

func TestDerivedOptions(t *testing.T) {
	cfg := Default()
	cfg.Preprocess.IQRFactor = 3
	cfg.Scoring.Classification.F1 = 1

	clean := cfg.CleanOptions("price")
	assert.InDelta(t, 3.0, clean.IQRFactor, 1e-12)
	assert.Equal(t, []string{"price"}, clean.Keep)

	proc := cfg.ProcessOptions("price", "regression")
	assert.Equal(t, "price", proc.Target)
	assert.Equal(t, "regression", proc.ProblemType)
	assert.InDelta(t, cfg.Preprocess.TestSize, proc.TestSize, 1e-12)

	s := cfg.Scorer()
	assert.InDelta(t, 1.0, s.Classification.F1, 1e-12)
}
