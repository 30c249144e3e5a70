package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-automl/config"
	"github.com/YuminosukeSato/scigo-automl/pipeline"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/store"
)

func newTestServer(t *testing.T, withHistory bool) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Plugins.Dir = filepath.Join(root, "plugins")
	cfg.Paths.OutputDir = filepath.Join(root, "artifacts")
	cfg.Paths.ResultsDir = filepath.Join(root, "results")
	cfg.Paths.ProcessedDir = filepath.Join(root, "processed")

	logger, _ := log.NewTestLogger(log.LevelInfo)
	var history *store.Store
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if withHistory {
		var err error
		history, err = store.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { history.Close() })
		opts = append(opts, pipeline.WithStore(history))
	}
	runner, err := pipeline.New(&cfg, opts...)
	require.NoError(t, err)
	return New(cfg.Server, runner, history, logger)
}

func csvBody(n int) string {
	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := 0; i < n; i++ {
		x1, x2 := i%13, (i*5)%19
		fmt.Fprintf(&b, "%d,%d,%d\n", x1, x2, 4*x1-x2+7)
	}
	return b.String()
}

func uploadRequest(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != "" {
		part, err := w.CreateFormFile("file", "data.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadValidation(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name   string
		fields map[string]string
		file   string
		code   int
	}{
		{"no file", map[string]string{"target_col": "y"}, "", http.StatusBadRequest},
		{"no target", map[string]string{}, csvBody(40), http.StatusBadRequest},
		{"no target for regression", map[string]string{"problem_type": "regression"}, csvBody(40), http.StatusBadRequest},
		{"unknown problem type", map[string]string{"problem_type": "ranking", "target_col": "y"}, csvBody(40), http.StatusBadRequest},
		{"unknown target", map[string]string{"target_col": "nope"}, csvBody(40), http.StatusBadRequest},
		{"clustering", map[string]string{"problem_type": "clustering"}, csvBody(40), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, uploadRequest(t, tt.fields, tt.file))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadRunsPipeline(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(s, uploadRequest(t, map[string]string{"target_col": "y", "problem_type": "regression"}, csvBody(80)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID       string                     `json:"run_id"`
		ProblemType string                     `json:"problem_type"`
		BestModel   string                     `json:"best_model"`
		ModelScores map[string]float64         `json:"model_scores"`
		Results     map[string]json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "regression", resp.ProblemType)
	assert.Contains(t, resp.ModelScores, resp.BestModel)
	assert.Contains(t, resp.Results, "best_model")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	assert.Equal(t, store.StatusSucceeded, runs[0].Status)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/runs/"+resp.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, resp.BestModel, run.BestModel)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/runs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/runs?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsWithoutHistory(t *testing.T) {
	s := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, httptest.NewRequest(http.MethodGet, "/runs", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, httptest.NewRequest(http.MethodGet, "/runs/x", nil)).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `automl_http_requests_total{method="GET",route="/healthz",status="200"}`)
}
