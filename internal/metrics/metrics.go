// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_prophet",
		Name:      "runs_total",
		Help:      "Total number of pipeline runs by outcome",
	}, []string{"status"}) // success, failure, skipped
	SourceFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock_prophet",
		Name:      "source_fetches_total",
		Help:      "Total number of external source fetches",
	}, []string{"source", "status"})
	ArtifactWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stock_prophet",
		Name:      "artifact_writes_total",
		Help:      "Total number of artifact files written",
	})
)

// Gauge metrics
var (
	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stock_prophet",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})
	TickersAnalyzed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stock_prophet",
		Name:      "tickers_analyzed",
		Help:      "Number of tickers analyzed in the last run",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stock_prophet",
		Name:      "run_duration_seconds",
		Help:      "Duration of full pipeline runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600},
	})
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stock_prophet",
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"}) // fetch, features, label, train, serialize
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RunsTotal)
		registry.MustRegister(SourceFetchesTotal)
		registry.MustRegister(ArtifactWritesTotal)

		registry.MustRegister(LastRunTimestamp)
		registry.MustRegister(TickersAnalyzed)

		registry.MustRegister(RunDuration)
		registry.MustRegister(StageDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRun records a completed run and its duration.
func RecordRun(status string, durationSeconds float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(durationSeconds)
}

// RecordSourceFetch records one external fetch attempt.
func RecordSourceFetch(source, status string) {
	SourceFetchesTotal.WithLabelValues(source, status).Inc()
}

// RecordStage records one pipeline stage duration.
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}
