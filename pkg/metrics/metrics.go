package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_run_count",
			Help: "Total number of update scan runs",
		},
		[]string{"outcome"}, // outcome: success, auth_error, transient_error
	)

	ScanItemCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_item_count",
			Help: "Total number of mail items seen by the scan pipeline",
		},
		[]string{"stage"}, // stage: fetched, new, accepted, rejected, deferred
	)

	ClassifierCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_call_latency_ms",
			Help:    "Classifier service call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	ClassifierRetryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classifier_retry_count",
			Help: "Total number of classifier call retries",
		},
	)

	FeedbackCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_count",
			Help: "Total number of feedback records received",
		},
		[]string{"is_correct"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordScanRun records the outcome of one pipeline run.
func RecordScanRun(outcome string) {
	ScanRunCount.WithLabelValues(outcome).Inc()
}

// RecordScanItems records how many items passed through a pipeline stage.
func RecordScanItems(stage string, n int) {
	if n > 0 {
		ScanItemCount.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordClassifierCall records classifier call latency.
func RecordClassifierCall(status string, duration time.Duration) {
	ClassifierCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
