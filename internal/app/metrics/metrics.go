package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "demande_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demande_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "demande_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demande_service",
			Subsystem: "demandes",
			Name:      "transitions_total",
			Help:      "Total number of demande status transitions.",
		},
		[]string{"operation"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demande_service",
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total number of notification mails attempted.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		statusTransitions,
		notifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTransition counts one demande status transition.
func RecordTransition(operation string) {
	if operation == "" {
		operation = "unknown"
	}
	statusTransitions.WithLabelValues(operation).Inc()
}

// RecordNotification counts one notification delivery attempt.
func RecordNotification(success bool) {
	result := "false"
	if success {
		result = "true"
	}
	notifications.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses identifier segments so the path label stays low
// cardinality.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 2 {
		return "/" + parts[0]
	}
	if parts[1] != "demandes" {
		return "/api/" + parts[1]
	}
	if len(parts) == 2 {
		return "/api/demandes"
	}
	switch parts[2] {
	case "pending":
		return "/api/demandes/pending"
	case "email":
		return "/api/demandes/email/:email"
	}
	if len(parts) == 3 {
		return "/api/demandes/:id"
	}
	return "/api/demandes/:id/" + parts[3]
}
