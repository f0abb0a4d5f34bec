package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esign",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	signingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esign",
			Subsystem: "signing",
			Name:      "submissions_total",
			Help:      "Signature submissions by outcome.",
		},
		[]string{"outcome"},
	)

	signingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "esign",
			Subsystem: "signing",
			Name:      "submission_duration_seconds",
			Help:      "Duration of the signature workflow.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	documentsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "esign",
			Subsystem: "documents",
			Name:      "completed_total",
			Help:      "Documents promoted to completed.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esign",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Notification sends by kind and status.",
		},
		[]string{"kind", "status"},
	)

	workerJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esign",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Queued notification jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(httpRequests, signingSubmissions, signingDuration, documentsCompleted, notifications, workerJobs)
}

// ObserveHTTPRequest records one handled request.
func ObserveHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveSubmission records a signature workflow outcome and its duration.
func ObserveSubmission(outcome string, d time.Duration) {
	signingSubmissions.WithLabelValues(outcome).Inc()
	signingDuration.Observe(d.Seconds())
}

// IncDocumentCompleted counts a draft/sent -> completed transition.
func IncDocumentCompleted() {
	documentsCompleted.Inc()
}

// IncNotification counts a notification attempt.
func IncNotification(kind, status string) {
	notifications.WithLabelValues(kind, status).Inc()
}

// IncWorkerJob counts a queued job outcome: received, delivered, failed or discarded.
func IncWorkerJob(outcome string) {
	workerJobs.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
