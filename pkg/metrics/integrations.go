package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Integration outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeInvalid     = "invalid"
)

// IntegrationMetrics tracks outbound calls to the fraud and courier providers.
type IntegrationMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewIntegrationMetrics(reg prometheus.Registerer) *IntegrationMetrics {
	if reg == nil {
		return &IntegrationMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "integration",
		Name:      "calls_total",
		Help:      "Outbound provider calls by outcome.",
	}, []string{"provider", "operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "integration",
		Name:      "call_duration_seconds",
		Help:      "Latency of outbound provider calls.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8, 12},
	}, []string{"provider", "operation"})
	reg.MustRegister(calls, latency)
	return &IntegrationMetrics{calls: calls, latency: latency}
}

// Observe records one provider call.
func (m *IntegrationMetrics) Observe(provider, operation, outcome string, took time.Duration) {
	if m == nil || m.calls == nil {
		return
	}
	provider, operation = normalizeLabel(provider), normalizeLabel(operation)
	m.calls.WithLabelValues(provider, operation, normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(provider, operation).Observe(took.Seconds())
}
