package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/store"
)

// workspace writes a config file pointing every path into a temp dir.
func workspace(t *testing.T) (root, configPath string) {
	t.Helper()
	root = t.TempDir()
	configPath = filepath.Join(root, "automl.yaml")
	body := fmt.Sprintf(`
plugins:
  dir: %[1]s/plugins
paths:
  output_dir: %[1]s/artifacts
  results_dir: %[1]s/results
  processed_dir: %[1]s/processed
store:
  path: %[1]s/automl.db
log:
  level: error
`, root)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return root, configPath
}

func dataFile(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("a,b,target\n")
	for i := 0; i < 70; i++ {
		a, c := i%11, (i*3)%17
		fmt.Fprintf(&b, "%d,%d,%d\n", a, c, 5*a+2*c-3)
	}
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "automl 1.2.3 (commit abc")
}

func TestPluginsInitAndList(t *testing.T) {
	_, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, "plugins", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "11 manifests written")

	out, err = execute(t, "--config", cfg, "plugins", "list", "--json")
	require.NoError(t, err)
	var units []plugin.UnitStatus
	require.NoError(t, json.Unmarshal([]byte(out), &units))
	assert.Len(t, units, 11)
	for _, u := range units {
		assert.True(t, u.Valid, u.File)
	}

	// a second init keeps existing files
	out, err = execute(t, "--config", cfg, "plugins", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "0 manifests written")
}

func TestRunAndHistory(t *testing.T) {
	root, cfg := workspace(t)
	data := dataFile(t, root)

	out, err := execute(t, "--config", cfg, "run", "--file", data, "--target", "target", "--json")
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "best_model")
	assert.Contains(t, doc, "linear")

	out, err = execute(t, "--config", cfg, "history", "--json")
	require.NoError(t, err)
	var runs []store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusSucceeded, runs[0].Status)
	assert.Equal(t, "data.csv", runs[0].Dataset)

	out, err = execute(t, "--config", cfg, "history", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)

	out, err = execute(t, "--config", cfg, "run", "--file", data, "--target", "target", "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, "best model:")
	assert.Contains(t, out, "coefficients:")
}

func TestPrepare(t *testing.T) {
	root, cfg := workspace(t)
	out, err := execute(t, "--config", cfg, "prepare", "--file", dataFile(t, root), "--target", "target", "--out", filepath.Join(root, "prep"))
	require.NoError(t, err)
	assert.Contains(t, out, "problem type: regression")
	assert.FileExists(t, filepath.Join(root, "prep", "metadata.json"))
}

func TestRunErrors(t *testing.T) {
	_, cfg := workspace(t)

	_, err := execute(t, "--config", cfg, "run")
	assert.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "plugins", "list")
	assert.Error(t, err)
}
