package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/pkg/courier"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/orderdesk-backend/pkg/phone"
)

const defaultClaimLease = 2 * time.Minute

type riskChecker interface {
	Check(ctx context.Context, rawPhone string) (risk.Assessment, error)
	Policy() risk.GatePolicy
}

type courierClient interface {
	CreateConsignment(ctx context.Context, in courier.ConsignmentRequest) (*courier.Consignment, error)
	CheckStatus(ctx context.Context, consignmentID string) courier.StatusReport
}

// FulfillmentService moves orders through their lifecycle and talks to the courier.
type FulfillmentService interface {
	Get(ctx context.Context, id uuid.UUID) (*OrderDetail, error)
	SearchByPhone(ctx context.Context, rawPhone string) ([]models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Dispatch(ctx context.Context, orderID uuid.UUID, actor Actor) (*DispatchResult, error)
	RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*CourierStatusResult, error)
}

type FulfillmentDeps struct {
	Tx                 txRunner
	Orders             Repository
	Risk               riskChecker
	Courier            courierClient
	Outbox             outboxPublisher
	CheckoutMetrics    *metrics.CheckoutMetrics
	IntegrationMetrics *metrics.IntegrationMetrics
	Logger             *logger.Logger
	// AutoDispatchOn dispatches to the courier when an order enters this status.
	AutoDispatchOn enums.OrderStatus
	ClaimLease     time.Duration
}

type fulfillmentService struct {
	tx             txRunner
	orders         Repository
	risk           riskChecker
	courier        courierClient
	outbox         outboxPublisher
	metrics        *metrics.CheckoutMetrics
	integrations   *metrics.IntegrationMetrics
	logg           *logger.Logger
	autoDispatchOn enums.OrderStatus
	claimLease     time.Duration
	now            func() time.Time
}

func NewFulfillmentService(deps FulfillmentDeps) (FulfillmentService, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Risk == nil:
		return nil, fmt.Errorf("risk service required")
	case deps.Courier == nil:
		return nil, fmt.Errorf("courier client required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	switch deps.AutoDispatchOn {
	case "", enums.OrderStatusConfirmed, enums.OrderStatusProcessing:
	default:
		return nil, fmt.Errorf("auto dispatch status must be confirmed or processing, got %q", deps.AutoDispatchOn)
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	lease := deps.ClaimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}
	return &fulfillmentService{
		tx:             deps.Tx,
		orders:         deps.Orders,
		risk:           deps.Risk,
		courier:        deps.Courier,
		outbox:         deps.Outbox,
		metrics:        deps.CheckoutMetrics,
		integrations:   deps.IntegrationMetrics,
		logg:           logg,
		autoDispatchOn: deps.AutoDispatchOn,
		claimLease:     lease,
		now:            time.Now,
	}, nil
}

func (s *fulfillmentService) Get(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	history, err := s.orders.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, persistenceError(err, "load order history")
	}
	return &OrderDetail{Order: order, History: history}, nil
}

// SearchByPhone matches the canonical phone exactly.
func (s *fulfillmentService) SearchByPhone(ctx context.Context, rawPhone string) ([]models.Order, error) {
	canonical, ok := phone.Normalize(rawPhone)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is not a valid mobile number").
			WithReason(pkgerrors.ReasonInvalidPhone)
	}
	orders, err := s.orders.FindByPhone(ctx, canonical, 50)
	if err != nil {
		return nil, persistenceError(err, "search orders by phone")
	}
	return orders, nil
}

func (s *fulfillmentService) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.Target})
	}
	if strings.TrimSpace(input.Actor.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx = s.logg.WithActor(ctx, input.Actor.Label())

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, lookupError(err, input.OrderID)
	}
	from := order.OrderStatus
	if !CanTransition(from, input.Target) {
		return nil, invalidTransition(from, input.Target)
	}

	result := &TransitionResult{From: from, To: input.Target}
	if input.Target == enums.OrderStatusConfirmed {
		if err := s.applyRiskGate(ctx, order, input.OverrideRisk, result); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		updated, err := repo.UpdateStatus(ctx, order.ID, order.Version, from, input.Target, now)
		if err != nil {
			return persistenceError(err, "update order status")
		}
		if updated == 0 {
			return concurrentModification(order.ID)
		}
		if err := repo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
			ID:           uuid.New(),
			OrderID:      order.ID,
			FromStatus:   &from,
			ToStatus:     input.Target,
			Actor:        input.Actor.Label(),
			Note:         optionalString(input.Note),
			RiskOverride: result.RiskOverridden,
			CreatedAt:    now,
		}); err != nil {
			return persistenceError(err, "record order status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ID: input.Actor.ID, Role: input.Actor.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				FromStatus:   from,
				ToStatus:     input.Target,
				Actor:        input.Actor.Label(),
				RiskOverride: result.RiskOverridden,
				Note:         strings.TrimSpace(input.Note),
				ChangedAt:    now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, persistenceError(err, "transition order")
	}
	s.metrics.Transition(from.String(), input.Target.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": input.Target}), "order status changed")

	if s.autoDispatchOn != "" && input.Target == s.autoDispatchOn && order.CourierConsignmentID == nil {
		dispatch, err := s.Dispatch(ctx, order.ID, input.Actor)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Code: WarningAutoDispatchFailed, Message: err.Error()})
		} else {
			result.Dispatch = dispatch
			result.Order = dispatch.Order
		}
	}

	if result.Order == nil {
		refreshed, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, lookupError(err, order.ID)
		}
		result.Order = refreshed
	}
	return result, nil
}

// applyRiskGate blocks confirmation of customers with a poor delivery history
// unless the operator overrides it. An unreachable provider is reported as a
// warning and never counts as a clean history.
func (s *fulfillmentService) applyRiskGate(ctx context.Context, order *models.Order, override bool, result *TransitionResult) error {
	assessment, err := s.risk.Check(ctx, order.CustomerPhone)
	if err != nil {
		s.metrics.RiskGate(metrics.RiskGateUnknown)
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningRiskUnknown,
			Message: "delivery history could not be checked; confirm manually",
		})
		return nil
	}

	decision := s.risk.Policy().Evaluate(assessment.Signal)
	result.Risk = &decision
	if !decision.Blocked {
		s.metrics.RiskGate(metrics.RiskGatePassed)
		return nil
	}
	if !override {
		s.metrics.RiskGate(metrics.RiskGateBlocked)
		return riskReviewRequired(decision)
	}
	s.metrics.RiskGate(metrics.RiskGateOverride)
	result.RiskOverridden = true
	s.logg.Warn(s.logg.WithField(ctx, "reasons", decision.Reasons), "risk gate overridden by operator")
	return nil
}

// Dispatch books a courier consignment for the order exactly once. The order
// row is claimed first so concurrent callers cannot both reach the courier.
func (s *fulfillmentService) Dispatch(ctx context.Context, orderID uuid.UUID, actor Actor) (*DispatchResult, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, orderID)
	}
	if order.CourierConsignmentID != nil {
		s.metrics.Dispatch(string(pkgerrors.ReasonAlreadyDispatched))
		return nil, alreadyDispatched(order.ID, *order.CourierConsignmentID)
	}
	if order.OrderStatus != enums.OrderStatusConfirmed && order.OrderStatus != enums.OrderStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed or processing orders can be dispatched").
			WithReason(pkgerrors.ReasonInvalidTransition).
			WithDetails(map[string]any{"status": order.OrderStatus})
	}

	now := s.now().UTC()
	claimed, err := s.orders.ClaimDispatch(ctx, order.ID, now, now.Add(-s.claimLease))
	if err != nil {
		return nil, persistenceError(err, "claim order for dispatch")
	}
	if claimed == 0 {
		current, err := s.orders.FindByID(ctx, order.ID)
		if err == nil && current.CourierConsignmentID != nil {
			return nil, alreadyDispatched(order.ID, *current.CourierConsignmentID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "dispatch already in progress for this order").
			WithReason(pkgerrors.ReasonDispatchInFlight)
	}

	started := time.Now()
	consignment, err := s.courier.CreateConsignment(ctx, consignmentRequest(order))
	if err != nil {
		s.integrations.Observe("courier", "create_consignment", courierOutcome(err), time.Since(started))
		s.metrics.Dispatch(metrics.OutcomeUnavailable)
		if releaseErr := s.orders.ReleaseDispatchClaim(ctx, order.ID); releaseErr != nil {
			s.logg.Error(ctx, "release dispatch claim failed", releaseErr)
		}
		return nil, err
	}
	s.integrations.Observe("courier", "create_consignment", metrics.OutcomeOK, time.Since(started))

	record := ConsignmentRecord{
		ConsignmentID: consignment.ConsignmentID,
		TrackingCode:  consignment.TrackingCode,
		Status:        consignment.Status,
	}
	stored := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.orders.WithTx(tx).StoreConsignment(ctx, order.ID, record, stored)
		if err != nil {
			return persistenceError(err, "store consignment")
		}
		if updated == 0 {
			return alreadyDispatched(order.ID, record.ConsignmentID)
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDispatched,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ID: actor.ID, Role: actor.Role},
			Data: payloads.OrderDispatchedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				ConsignmentID: record.ConsignmentID,
				TrackingCode:  record.TrackingCode,
				CODAmount:     codAmount(order),
				DispatchedAt:  stored,
			},
			OccurredAt: stored,
		})
	})
	if err != nil {
		// The courier already holds the consignment; keep its id in the logs for manual repair.
		s.logg.Error(s.logg.WithField(ctx, "consignment_id", record.ConsignmentID), "consignment created but not stored", err)
		s.metrics.Dispatch(metrics.OutcomeUnavailable)
		return nil, persistenceError(err, "store consignment")
	}
	s.metrics.Dispatch(metrics.OutcomeOK)
	s.logg.Info(s.logg.WithField(ctx, "consignment_id", record.ConsignmentID), "order dispatched to courier")

	refreshed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, lookupError(err, order.ID)
	}
	return &DispatchResult{
		Order:         refreshed,
		ConsignmentID: record.ConsignmentID,
		TrackingCode:  record.TrackingCode,
		CourierStatus: record.Status,
	}, nil
}

// RefreshCourierStatus stores the courier's latest status. The order status is
// left alone; the reconciliation hint tells the operator whether to act.
func (s *fulfillmentService) RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*CourierStatusResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, orderID)
	}
	if order.CourierConsignmentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been dispatched")
	}

	started := time.Now()
	report := s.courier.CheckStatus(ctx, *order.CourierConsignmentID)
	outcome := metrics.OutcomeOK
	if !report.Known {
		outcome = metrics.OutcomeUnavailable
	}
	s.integrations.Observe("courier", "check_status", outcome, time.Since(started))

	checkedAt := report.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = s.now().UTC()
	}
	stored := ""
	if report.Known {
		stored = report.Status
	}
	if err := s.orders.UpdateCourierStatus(ctx, order.ID, stored, checkedAt); err != nil {
		return nil, persistenceError(err, "store courier status")
	}
	if report.Known {
		order.CourierStatus = &report.Status
	}
	order.CourierStatusCheckedAt = &checkedAt

	return &CourierStatusResult{
		Order:          order,
		Status:         report.Status,
		Known:          report.Known,
		CheckedAt:      checkedAt,
		Reconciliation: Reconcile(order.OrderStatus, report),
	}, nil
}

// Reconcile compares the courier's view of a shipment with the order status.
func Reconcile(status enums.OrderStatus, report courier.StatusReport) enums.CourierReconciliation {
	if !report.Known {
		return enums.CourierReconciliationUnknown
	}
	switch courier.PhaseOf(report.Status) {
	case courier.PhaseCancelled:
		if status == enums.OrderStatusCancelled || status == enums.OrderStatusRefunded {
			return enums.CourierReconciliationInSync
		}
		return enums.CourierReconciliationCourierCancelled
	case courier.PhaseDelivered:
		if status == enums.OrderStatusDelivered {
			return enums.CourierReconciliationInSync
		}
		return enums.CourierReconciliationCourierAhead
	case courier.PhaseInTransit:
		switch status {
		case enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusShipped:
			return enums.CourierReconciliationInSync
		}
	}
	return enums.CourierReconciliationUnknown
}

func consignmentRequest(order *models.Order) courier.ConsignmentRequest {
	address := order.Address
	if order.Area != nil && *order.Area != "" {
		address += ", " + *order.Area
	}
	address += ", " + order.City

	note := ""
	if order.Notes != nil {
		note = *order.Notes
	}
	return courier.ConsignmentRequest{
		Invoice:          order.OrderNumber,
		RecipientName:    order.CustomerName,
		RecipientPhone:   order.CustomerPhone,
		RecipientAddress: address,
		CODAmount:        codAmount(order),
		Note:             note,
	}
}

// codAmount is what the courier collects at the door.
func codAmount(order *models.Order) int64 {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return 0
	}
	due := order.TotalAmount - order.AdvanceAmount
	if due < 0 {
		return 0
	}
	return due
}

func courierOutcome(err error) string {
	if pkgerrors.HasReason(err, pkgerrors.ReasonRejectedByProvider) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeUnavailable
}
