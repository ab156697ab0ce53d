// Package ml provides Prometheus metrics for model operations.
package ml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainingsTotal tracks classifier training attempts
	TrainingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_trainings_total",
			Help: "Total number of classifier training attempts",
		},
		[]string{"status"}, // success, failure
	)

	// PredictionsTotal tracks predictions produced
	PredictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of predictions produced",
		},
	)

	// TrainingDuration tracks end-to-end training duration per ticker
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ml_training_duration_seconds",
			Help:    "Training duration per ticker in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
