// Package obs holds the Prometheus metrics for the platform.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Pipeline metrics.

	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aula_chat_turns_total",
			Help: "Completed chat turns by outcome (ok, error).",
		},
		[]string{"outcome"},
	)

	proposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aula_proposals_total",
			Help: "Proposal tool calls by result (accepted, refused, malformed).",
		},
		[]string{"result"},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aula_approval_decisions_total",
			Help: "Approval decisions by outcome (approved, rejected).",
		},
		[]string{"outcome"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aula_executions_total",
			Help: "Mutation executions by result (executed, failed, stale).",
		},
		[]string{"result"},
	)
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		chatTurnsTotal,
		proposalsTotal,
		decisionsTotal,
		executionsTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveChatTurn(outcome string) { chatTurnsTotal.WithLabelValues(outcome).Inc() }
func ObserveProposal(result string)  { proposalsTotal.WithLabelValues(result).Inc() }
func ObserveDecision(outcome string) { decisionsTotal.WithLabelValues(outcome).Inc() }
func ObserveExecution(result string) { executionsTotal.WithLabelValues(result).Inc() }

// Instrument wraps an HTTP handler with request count, latency, and
// in-flight gauges.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
