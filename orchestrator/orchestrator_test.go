package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/dataset"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/plugin/builtin"
	"github.com/YuminosukeSato/scigo-automl/training"
)

type recordingTrainer struct {
	name  string
	calls *[]string
}

func (r recordingTrainer) TrainAll(context.Context, *mat.Dense, *mat.Dense, *mat.Dense, *mat.Dense) (*training.RunResults, error) {
	*r.calls = append(*r.calls, r.name)
	return &training.RunResults{}, nil
}

type countingRegistry struct{ calls int }

func (c *countingRegistry) Discover(context.Context, string, plugin.TaskType) ([]plugin.Descriptor, error) {
	c.calls++
	return nil, nil
}

func quiet() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

func small(problem string) *dataset.Dataset {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	return &dataset.Dataset{XTrain: X, YTrain: y, XVal: X, YVal: y, Metadata: dataset.Metadata{ProblemType: problem}}
}

func TestRunDispatchesByProblemType(t *testing.T) {
	var calls []string
	o := New(&countingRegistry{}, "", nil,
		WithTrainerFactory(plugin.Regression, func(*dataset.Dataset) Trainer { return recordingTrainer{"regression", &calls} }),
		WithTrainerFactory(plugin.Classification, func(*dataset.Dataset) Trainer { return recordingTrainer{"classification", &calls} }),
		WithLogger(quiet()),
	)
	_, err := o.Run(context.Background(), small("classification"))
	require.NoError(t, err)
	_, err = o.Run(context.Background(), small("regression"))
	require.NoError(t, err)
	assert.Equal(t, []string{"classification", "regression"}, calls)
}

func TestRunRejectsUnsupportedTaskTypes(t *testing.T) {
	for _, problem := range []string{"clustering", "", "ranking"} {
		t.Run(problem, func(t *testing.T) {
			reg := &countingRegistry{}
			o := New(reg, "", nil, WithLogger(quiet()))
			_, err := o.Run(context.Background(), small(problem))

			var uerr *errors.UnsupportedTaskTypeError
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, problem, uerr.TaskType)
			assert.Equal(t, []string{"classification", "regression"}, uerr.Supported)
			assert.Zero(t, reg.calls, "no plugin may be touched")
		})
	}
}

func TestRunRequiresTrainingSplit(t *testing.T) {
	o := New(&countingRegistry{}, "", nil, WithLogger(quiet()))
	ds := small("regression")
	ds.YTrain = nil
	_, err := o.Run(context.Background(), ds)
	assert.Error(t, err)
	_, err = o.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunDirEndToEnd(t *testing.T) {
	pluginDir := t.TempDir()
	_, err := builtin.WriteManifests(pluginDir, false)
	require.NoError(t, err)

	n := 40
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.SetRow(i, []float64{float64(i % 8), float64(i % 3)})
		y.Set(i, 0, float64(i%8)*1.5-float64(i%3)+2)
	}
	ds := &dataset.Dataset{
		XTrain: X, YTrain: y, XVal: X, YVal: y,
		Metadata: dataset.Metadata{ProblemType: "regression", FeatureNames: []string{"a", "b"}, NFeatures: 2},
	}
	dataDir := filepath.Join(t.TempDir(), "processed")
	require.NoError(t, ds.Save(dataDir))

	reg := plugin.NewRegistry(plugin.WithFactories(builtin.Factories()), plugin.WithLogger(quiet()))
	o := New(reg, pluginDir, []training.Option{
		training.WithOutputDir(t.TempDir()),
		training.WithLogger(quiet()),
		training.WithPluginConfig("random_forest_regressor", map[string]any{"n_estimators": 4}),
	}, WithLogger(quiet()))

	rr, err := o.RunDir(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Len(t, rr.Results, 7)
	lin, ok := rr.Get("linear")
	require.True(t, ok)
	require.NotNil(t, lin.Weights)
	assert.Equal(t, []string{"a", "b"}, lin.Weights.Features)

	_, err = o.RunDir(context.Background(), t.TempDir())
	assert.Error(t, err)
}
