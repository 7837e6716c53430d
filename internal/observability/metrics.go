package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ciguard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ciguard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	checkRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ciguard",
			Subsystem: "lint",
			Name:      "checks_total",
			Help:      "Lint runs grouped by outcome.",
		},
		[]string{"kind", "outcome"},
	)
	checkFindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ciguard",
			Subsystem: "lint",
			Name:      "findings_total",
			Help:      "Findings emitted per severity.",
		},
		[]string{"kind", "severity"},
	)
	checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ciguard",
			Subsystem: "lint",
			Name:      "check_duration_seconds",
			Help:      "Lint run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, checkRuns, checkFindings, checkDuration)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCheck counts one lint run over a document kind (workflow, pipeline,
// owners, repo) and its findings per severity.
func RecordCheck(kind, outcome string, severities map[string]int, duration time.Duration) {
	RegisterMetrics()
	checkRuns.WithLabelValues(kind, outcome).Inc()
	for severity, count := range severities {
		checkFindings.WithLabelValues(kind, severity).Add(float64(count))
	}
	checkDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
