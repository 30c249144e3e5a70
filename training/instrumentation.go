package training

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	trainingsTotal   *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		trainingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "automl_plugin_trainings_total",
			Help: "Plugin training calls by outcome.",
		}, []string{"plugin", "status"})
		trainingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "automl_plugin_training_duration_seconds",
			Help:    "Wall time of one plugin training call.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"plugin"})
	})
}

func observe(plugin, status string, elapsed time.Duration) {
	initMetrics()
	trainingsTotal.WithLabelValues(plugin, status).Inc()
	trainingDuration.WithLabelValues(plugin).Observe(elapsed.Seconds())
}
