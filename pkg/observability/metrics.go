// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring an interpreter service deployment.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecutionBuckets defines histogram buckets suited for code execution
// latencies, ranging from 10ms to 120s.
var ExecutionBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tci_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tci_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"method"},
	)

	// SessionsActive tracks the number of currently open sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tci_sessions_active",
			Help: "Open sessions",
		},
	)

	// ExecutionsTotal counts code executions by outcome.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tci_executions_total",
			Help: "Code executions",
		},
		[]string{"status"},
	)

	// TestsGradedTotal counts graded test specs by result.
	TestsGradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tci_tests_graded_total",
			Help: "Graded tests",
		},
		[]string{"result"},
	)

	// FilesTransferredTotal counts file transfers by direction (upload/download).
	FilesTransferredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tci_files_transferred_total",
			Help: "File transfers",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsActive,
		ExecutionsTotal,
		TestsGradedTotal,
		FilesTransferredTotal,
	)
}
