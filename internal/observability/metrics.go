package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// All record methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsTotal         *prometheus.CounterVec

	evaluationRunsTotal    *prometheus.CounterVec
	evaluationProcessed    prometheus.Counter
	evaluationItemFailures prometheus.Counter
	evaluationDuration     prometheus.Histogram
	breachEventsTotal      prometheus.Counter
	evaluationSkippedTotal *prometheus.CounterVec
	eventPublishFailures   *prometheus.CounterVec
}

// NewMetrics initializes and registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Error responses by reason code",
			},
			[]string{"method", "route", "code"},
		),
		evaluationRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_evaluation_runs_total",
				Help: "SLA evaluation passes by outcome",
			},
			[]string{"outcome"},
		),
		evaluationProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_evaluation_processed_total",
			Help: "Work orders evaluated and persisted",
		}),
		evaluationItemFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_evaluation_item_failures_total",
			Help: "Work orders skipped because their evaluation failed",
		}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_evaluation_duration_seconds",
			Help:    "Duration of one SLA evaluation pass",
			Buckets: prometheus.DefBuckets,
		}),
		breachEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_breach_events_total",
			Help: "Breach events raised",
		}),
		evaluationSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_evaluation_skipped_total",
				Help: "Scheduler ticks that did not run an evaluation",
			},
			[]string{"reason"},
		),
		eventPublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_publish_failures_total",
				Help: "Failed broker publishes by event type",
			},
			[]string{"type"},
		),
	}
	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.errorsTotal,
		m.evaluationRunsTotal,
		m.evaluationProcessed,
		m.evaluationItemFailures,
		m.evaluationDuration,
		m.breachEventsTotal,
		m.evaluationSkippedTotal,
		m.eventPublishFailures,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordEvaluation records one processor pass.
func (m *Metrics) RecordEvaluation(processed, failed, breaches int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.evaluationRunsTotal.WithLabelValues(outcome).Inc()
	m.evaluationProcessed.Add(float64(processed))
	m.evaluationItemFailures.Add(float64(failed))
	m.breachEventsTotal.Add(float64(breaches))
	m.evaluationDuration.Observe(duration.Seconds())
}

// RecordEvaluationSkipped counts a tick that did not evaluate (lock held elsewhere, run in flight).
func (m *Metrics) RecordEvaluationSkipped(reason string) {
	if m == nil {
		return
	}
	m.evaluationSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordPublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.eventPublishFailures.WithLabelValues(eventType).Inc()
}
