package risk

import (
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
)

// Gate block reasons.
const (
	ReasonLowSuccessRatio = "low_success_ratio"
	ReasonTooManyCancels  = "too_many_cancellations"
)

// GatePolicy holds the thresholds an order confirmation is checked against.
type GatePolicy struct {
	MinSuccessRatio float64
	MaxCancelled    int
}

// DefaultGatePolicy blocks below 70% success or above 5 cancellations.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{MinSuccessRatio: 70, MaxCancelled: 5}
}

// GatePolicyFromConfig falls back to the defaults for unset thresholds.
func GatePolicyFromConfig(cfg config.RiskConfig) GatePolicy {
	policy := DefaultGatePolicy()
	if cfg.MinSuccessRatio > 0 {
		policy.MinSuccessRatio = cfg.MinSuccessRatio
	}
	if cfg.MaxCancelled > 0 {
		policy.MaxCancelled = cfg.MaxCancelled
	}
	return policy
}

// GateMetrics are the figures shown to the operator alongside a decision.
type GateMetrics struct {
	Tier             enums.RiskTier `json:"tier"`
	TotalParcels     int            `json:"totalParcels"`
	SuccessParcels   int            `json:"successParcels"`
	CancelledParcels int            `json:"cancelledParcels"`
	SuccessRatio     float64        `json:"successRatio"`
	MinSuccessRatio  float64        `json:"minSuccessRatio"`
	MaxCancelled     int            `json:"maxCancelled"`
}

type GateDecision struct {
	Blocked bool        `json:"blocked"`
	Reasons []string    `json:"reasons,omitempty"`
	Metrics GateMetrics `json:"metrics"`
}

// Evaluate never blocks a phone without delivery history.
func (p GatePolicy) Evaluate(signal fraud.Signal) GateDecision {
	decision := GateDecision{
		Metrics: GateMetrics{
			Tier:             signal.Tier(),
			TotalParcels:     signal.Total,
			SuccessParcels:   signal.Success,
			CancelledParcels: signal.Cancelled,
			SuccessRatio:     signal.SuccessRatio,
			MinSuccessRatio:  p.MinSuccessRatio,
			MaxCancelled:     p.MaxCancelled,
		},
	}
	if !signal.HasHistory() {
		return decision
	}
	if signal.SuccessRatio < p.MinSuccessRatio {
		decision.Reasons = append(decision.Reasons, ReasonLowSuccessRatio)
	}
	if signal.Cancelled > p.MaxCancelled {
		decision.Reasons = append(decision.Reasons, ReasonTooManyCancels)
	}
	decision.Blocked = len(decision.Reasons) > 0
	return decision
}
