package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpMetricsOnce sync.Once
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRuns      prometheus.Gauge
)

func initHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "automl_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"})
		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "automl_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"method", "route"})
		activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "automl_active_runs",
			Help: "Pipeline runs currently executing.",
		})
	})
}

// instrument records request counts and latency by route template, so
// /runs/:id stays one series.
func instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
