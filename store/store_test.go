package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "automl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, at time.Time) *Run {
	return &Run{
		ID:          id,
		CreatedAt:   at,
		Dataset:     "houses.csv",
		ProblemType: "regression",
		Target:      "price",
		BestModel:   "ridge",
		BestScore:   12.5,
		ModelScores: map[string]float64{"ridge": 12.5, "linear": 11},
		ResultsPath: "results/" + id + "/results.json",
		Status:      StatusSucceeded,
		DurationMs:  420,
	}
}

func TestSaveGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)

	require.NoError(t, s.Save(ctx, sampleRun("a", at)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, sampleRun("a", at), got)
}

func TestSaveUpdatesExisting(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	r := sampleRun("a", time.Now())
	require.NoError(t, s.Save(ctx, r))

	r.Status = StatusFailed
	r.Error = "no scorable results"
	r.BestModel = ""
	r.ModelScores = nil
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "no scorable results", got.Error)
	assert.Empty(t, got.BestModel)
	assert.Empty(t, got.ModelScores)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.Save(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[2].ID)

	runs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Save(context.Background(), nil))
	assert.Error(t, s.Save(context.Background(), &Run{}))
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), sampleRun("x", time.Now())))
	runs, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
