package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrainingDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "training_duration_seconds",
		Namespace: AircastNamespace,
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		Help:      "Wall-clock duration of full training pipeline runs in seconds.",
	}, []string{"frequency"})

	TrainingRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "training_rows_total",
		Namespace: AircastNamespace,
		Help:      "The total number of feature rows consumed by training runs.",
	}, []string{"frequency"})

	ForecastPointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "forecast_points_total",
		Namespace: AircastNamespace,
		Help:      "The total number of forecast points generated.",
	}, []string{"frequency"})

	ForecastUpsertFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "forecast_upsert_failures_total",
		Namespace: AircastNamespace,
		Help:      "The total number of forecast documents that failed to persist and were skipped.",
	}, []string{"frequency"})

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "job_runs_total",
		Namespace: AircastNamespace,
		Help:      "The total number of pipeline job runs by outcome.",
	}, []string{"job", "frequency", "state"})
)
