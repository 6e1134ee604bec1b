// internal/common/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ApplicationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_applications_processed_total",
			Help: "Loan applications by final outcome (decision label or failed)",
		},
		[]string{"outcome"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_application_stage_failures_total",
			Help: "Fatal failures by orchestrator stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	ApplicationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loan_application_duration_seconds",
			Help:    "End-to-end duration of a loan application",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_request_duration_seconds",
			Help:    "Duration of calls to the scoring service",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"status"},
	)

	MirrorWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_mirror_writes_total",
			Help: "Analytics mirror writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	MirrorCoercionNulls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_mirror_coercion_nulls_total",
			Help: "Payload fields written as NULL because they could not be coerced",
		},
		[]string{"column"},
	)

	MirrorQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_mirror_queue_dropped_total",
			Help: "Mirror writes dropped because the async queue was full",
		},
	)

	MirrorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_mirror_queue_depth",
			Help: "Records waiting in the async mirror queue",
		},
	)

	RecentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recent_cache_lookups_total",
			Help: "Recent-applications cache lookups by result",
		},
		[]string{"result"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
