package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/training"
)

func results(scores map[string]float64, names ...string) *training.RunResults {
	rr := &training.RunResults{TaskType: plugin.Regression, ModelScores: scores}
	for _, n := range names {
		rr.Results = append(rr.Results, &training.Result{Name: n})
	}
	return rr
}

func TestWriteScoreChart(t *testing.T) {
	rr := results(map[string]float64{"linear": 4.2, "ridge": 5.1}, "linear", "ridge", "broken")
	rr.BestModel = "ridge"
	path := filepath.Join(t.TempDir(), ChartFile)

	require.NoError(t, WriteScoreChart(rr, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// PNG signature
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestWriteScoreChartNothingToPlot(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteScoreChart(nil, filepath.Join(dir, "a.png")))
	assert.Error(t, WriteScoreChart(results(nil, "a"), filepath.Join(dir, "b.png")))
	assert.Error(t, WriteScoreChart(results(map[string]float64{"a": math.NaN()}, "a"), filepath.Join(dir, "c.png")))
}
