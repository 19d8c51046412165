package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// Actor identifies who changed an order.
type Actor struct {
	ID   string
	Role string
}

// CustomerActor is recorded for changes made by the storefront.
var CustomerActor = Actor{ID: "customer", Role: "customer"}

// SystemActor is recorded for changes made by background jobs.
var SystemActor = Actor{ID: "system", Role: "system"}

// Label is the audit-trail form of the actor.
func (a Actor) Label() string {
	if a.Role == "" || a.Role == a.ID {
		return a.ID
	}
	return a.Role + ":" + a.ID
}

// SubmitInput is a checkout form submission.
type SubmitInput struct {
	SessionID      string
	Customer       models.CustomerSnapshot
	Cart           []models.CartLine
	DeliveryZoneID *uuid.UUID
	CouponCode     string
	PaymentMethod  enums.PaymentMethod
	AdvanceAmount  int64
}

// OrderResult is the authoritative order created by a conversion.
type OrderResult struct {
	Order *models.Order
	Quote pricing.Quote
}

type TransitionInput struct {
	OrderID      uuid.UUID
	Target       enums.OrderStatus
	Actor        Actor
	OverrideRisk bool
	Note         string
}

// Warning codes attached to otherwise successful results.
const (
	WarningRiskUnknown        = "risk_unknown"
	WarningAutoDispatchFailed = "auto_dispatch_failed"
)

// Warning is a non-blocking problem the operator should see.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TransitionResult struct {
	Order          *models.Order
	From           enums.OrderStatus
	To             enums.OrderStatus
	Risk           *risk.GateDecision
	RiskOverridden bool
	Dispatch       *DispatchResult
	Warnings       []Warning
}

type DispatchResult struct {
	Order         *models.Order
	ConsignmentID string
	TrackingCode  string
	CourierStatus string
}

type CourierStatusResult struct {
	Order          *models.Order
	Status         string
	Known          bool
	CheckedAt      time.Time
	Reconciliation enums.CourierReconciliation
}

// OrderDetail is an order with its audit history.
type OrderDetail struct {
	Order   *models.Order
	History []models.OrderStatusEvent
}
