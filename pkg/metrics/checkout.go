package metrics

import "github.com/prometheus/client_golang/prometheus"

// Autosave outcomes.
const (
	AutosavePersisted = "persisted"
	AutosaveSkipped   = "skipped"
	AutosaveStale     = "stale"
	AutosaveCancelled = "cancelled"
	AutosaveFailed    = "failed"
)

// Conversion outcomes.
const (
	ConversionCreated          = "created"
	ConversionAlreadyConverted = "already_converted"
	ConversionRejected         = "rejected"
	ConversionFailed           = "failed"
)

// Risk gate decisions.
const (
	RiskGatePassed   = "passed"
	RiskGateBlocked  = "blocked"
	RiskGateOverride = "override"
	RiskGateUnknown  = "unknown"
)

// CheckoutMetrics covers the checkout funnel and order lifecycle.
type CheckoutMetrics struct {
	autosaves   *prometheus.CounterVec
	conversions *prometheus.CounterVec
	transitions *prometheus.CounterVec
	riskGate    *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "autosaves_total",
			Help:      "Checkout session autosave attempts by outcome.",
		}, []string{"outcome"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "conversions_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"from", "to"}),
		riskGate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "risk_gate_total",
			Help:      "Risk gate decisions on confirmation.",
		}, []string{"decision"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "dispatches_total",
			Help:      "Courier dispatch attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.autosaves, m.conversions, m.transitions, m.riskGate, m.dispatches)
	return m
}

func (m *CheckoutMetrics) Autosave(outcome string) {
	if m == nil || m.autosaves == nil {
		return
	}
	m.autosaves.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) Conversion(outcome string) {
	if m == nil || m.conversions == nil {
		return
	}
	m.conversions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) Transition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *CheckoutMetrics) RiskGate(decision string) {
	if m == nil || m.riskGate == nil {
		return
	}
	m.riskGate.WithLabelValues(normalizeLabel(decision)).Inc()
}

func (m *CheckoutMetrics) Dispatch(outcome string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(outcome)).Inc()
}
