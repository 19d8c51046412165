package orders

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

func persistenceError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg).WithReason(pkgerrors.ReasonPersistence)
}

func lookupError(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"order_id": id.String()})
	}
	return persistenceError(err, "load order")
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from "+from.String()+" to "+to.String()).
		WithReason(pkgerrors.ReasonInvalidTransition).
		WithDetails(map[string]any{"from": from, "to": to, "allowed": NextStatuses(from)})
}

func concurrentModification(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, reload and retry").
		WithReason(pkgerrors.ReasonConcurrentUpdate).
		WithDetails(map[string]any{"order_id": id.String()})
}

func alreadyDispatched(id uuid.UUID, consignmentID string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order already has a courier consignment").
		WithReason(pkgerrors.ReasonAlreadyDispatched).
		WithDetails(map[string]any{"order_id": id.String(), "consignment_id": consignmentID})
}

func riskReviewRequired(decision risk.GateDecision) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "customer delivery history requires review before confirming").
		WithReason(pkgerrors.ReasonRiskReviewRequired).
		WithDetails(map[string]any{
			"tier":    decision.Metrics.Tier,
			"reasons": decision.Reasons,
			"metrics": decision.Metrics,
		})
}
