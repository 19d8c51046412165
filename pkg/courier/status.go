package courier

// Delivery statuses reported by the courier.
const (
	StatusUnknown                  = "unknown"
	StatusPending                  = "pending"
	StatusInReview                 = "in_review"
	StatusHold                     = "hold"
	StatusDelivered                = "delivered"
	StatusPartialDelivered         = "partial_delivered"
	StatusCancelled                = "cancelled"
	StatusDeliveredApprovalPending = "delivered_approval_pending"
	StatusPartialApprovalPending   = "partial_delivered_approval_pending"
	StatusCancelledApprovalPending = "cancelled_approval_pending"
	StatusUnknownApprovalPending   = "unknown_approval_pending"
)

// Phase groups courier statuses into the stages an operator reasons about.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseInTransit
	PhaseDelivered
	PhaseCancelled
)

// PhaseOf classifies a raw courier status.
func PhaseOf(status string) Phase {
	switch status {
	case StatusPending, StatusInReview, StatusHold:
		return PhaseInTransit
	case StatusDelivered, StatusPartialDelivered, StatusDeliveredApprovalPending, StatusPartialApprovalPending:
		return PhaseDelivered
	case StatusCancelled, StatusCancelledApprovalPending:
		return PhaseCancelled
	default:
		return PhaseUnknown
	}
}
