package metrics

import "github.com/prometheus/client_golang/prometheus"

// Knowledge-base client and background task Prometheus metrics.
var (
	KBRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaultd",
			Name:      "kb_requests_total",
			Help:      "Total number of knowledge-base service requests",
		},
		[]string{"backend", "operation", "status"},
	)

	KBRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vaultd",
			Name:      "kb_request_duration_seconds",
			Help:      "Knowledge-base request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "operation"},
	)

	BackgroundTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaultd",
			Name:      "background_tasks_total",
			Help:      "Background reconciliation tasks by outcome",
		},
		[]string{"task", "status"}, // status: "ok" / "error"
	)
)

var kbMetricsRegistered bool

// RegisterKBMetrics registers Prometheus KB metrics. Must be called once from main.
func RegisterKBMetrics() {
	if kbMetricsRegistered {
		return
	}
	prometheus.MustRegister(KBRequestsTotal)
	prometheus.MustRegister(KBRequestDuration)
	prometheus.MustRegister(BackgroundTasksTotal)
	kbMetricsRegistered = true
}
