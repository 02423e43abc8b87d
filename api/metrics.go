package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// DecisionsTotal counts workflow decisions by type and outcome
	// (accepted or rejected).
	DecisionsTotal *prometheus.CounterVec
	// EvaluationsTotal counts evaluator decisions by recommendation.
	EvaluationsTotal *prometheus.CounterVec
	// InvalidTransitionsTotal counts decisions refused because the
	// proposal was not in an allowed status.
	InvalidTransitionsTotal prometheus.Counter
	// RequestDuration observes handler latency by operation.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the API collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewflow",
			Name:      "decisions_total",
			Help:      "Workflow decisions submitted, by type and outcome.",
		}, []string{"type", "outcome"}),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewflow",
			Name:      "evaluations_total",
			Help:      "Evaluator decisions recorded, by recommendation.",
		}, []string{"recommendation"}),
		InvalidTransitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewflow",
			Name:      "invalid_transitions_total",
			Help:      "Decisions refused due to the proposal's status.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reviewflow",
			Name:      "request_duration_seconds",
			Help:      "API handler latency, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	registry.MustRegister(
		m.DecisionsTotal,
		m.EvaluationsTotal,
		m.InvalidTransitionsTotal,
		m.RequestDuration,
	)
	return m
}

// HTTPHandler returns the scrape endpoint for this registry.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
