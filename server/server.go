// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/YuminosukeSato/scigo-automl/config"
	"github.com/YuminosukeSato/scigo-automl/pipeline"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/store"
	"github.com/YuminosukeSato/scigo-automl/training"
)

// Server serves uploads and run history.
type Server struct {
	echo    *echo.Echo
	runner  *pipeline.Runner
	history *store.Store
	runs    *semaphore.Weighted
	cfg     config.ServerConfig
	logger  log.Logger
}

// UploadResponse is the body of a POST /upload reply.
type UploadResponse struct {
	RunID       string               `json:"run_id"`
	ProblemType string               `json:"problem_type"`
	BestModel   string               `json:"best_model"`
	ModelScores map[string]float64   `json:"model_scores"`
	Results     *training.RunResults `json:"results,omitempty"`
	Summary     *pipeline.Summary    `json:"summary,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// New creates a server. history may be nil, in which case the /runs
// endpoints answer 503.
func New(cfg config.ServerConfig, runner *pipeline.Runner, history *store.Store, logger log.Logger) *Server {
	if logger == nil {
		logger = log.GetLoggerWithName("server")
	}
	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = 1
	}
	if cfg.MaxUploadMB < 1 {
		cfg.MaxUploadMB = 64
	}
	initHTTPMetrics()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(instrument)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				log.DurationMsKey, time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		runner:  runner,
		history: history,
		runs:    semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		cfg:     cfg,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/upload", s.handleUpload, middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.MaxUploadMB)))
	s.echo.GET("/runs", s.handleListRuns)
	s.echo.GET("/runs/:id", s.handleGetRun)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	problem := c.FormValue("problem_type")
	target := c.FormValue("target_col")
	if target == "" && problem != string(plugin.Clustering) {
		return echo.NewHTTPError(http.StatusBadRequest, "target_col is required for supervised tasks")
	}
	if problem != "" && !plugin.TaskType(problem).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown problem_type "+strconv.Quote(problem))
	}

	dir, err := os.MkdirTemp("", "automl-upload-*")
	if err != nil {
		return errors.Wrap(err, "create upload directory")
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := saveUpload(fh, path); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled while waiting for a run slot")
	}
	defer s.runs.Release(1)
	activeRuns.Inc()
	defer activeRuns.Dec()

	rep, err := s.runner.Run(ctx, pipeline.Request{File: path, Target: target, ProblemType: problem})
	resp := UploadResponse{RunID: rep.RunID, ProblemType: rep.Metadata.ProblemType, Summary: rep.Summary, Results: rep.Results}
	if rep.Results != nil {
		resp.BestModel, resp.ModelScores = rep.Results.BestModel, rep.Results.ModelScores
	}
	if err != nil {
		resp.Error = err.Error()
		code := statusFor(err)
		s.logger.Warn("upload run failed", log.RunIDKey, rep.RunID, "status", code, log.ErrAttrKey, err)
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "open upload")
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create upload file")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Wrap(err, "store upload")
	}
	return errors.Wrap(dst.Close(), "store upload")
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	var (
		valueErr    *errors.ValueError
		validation  *errors.ValidationError
		unsupported *errors.UnsupportedTaskTypeError
		selection   *errors.SelectionError
	)
	switch {
	case errors.As(err, &valueErr), errors.As(err, &validation), errors.Is(err, errors.ErrEmptyData):
		return http.StatusBadRequest
	case errors.As(err, &unsupported), errors.As(err, &selection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListRuns(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history is disabled")
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	runs, err := s.history.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history is disabled")
	}
	run, err := s.history.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
