package admin

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/orderdesk-backend/api/controllers/dto"
	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	internalorders "github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

func actorFrom(r *http.Request) internalorders.Actor {
	return internalorders.Actor{
		ID:   middleware.OperatorIDFromContext(r.Context()),
		Role: string(middleware.RoleFromContext(r.Context())),
	}
}

// OrderDetail returns an order with its status history.
func OrderDetail(svc internalorders.FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, OrderDetailResponse{
			Order:   dto.NewOrder(detail.Order),
			History: dto.NewStatusEvents(detail.History),
		})
	}
}

// OrdersByPhone finds orders placed from a phone number in any accepted format.
func OrdersByPhone(svc internalorders.FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "phone query parameter required").
				WithDetails(map[string]any{"field": "phone"}))
			return
		}

		rows, err := svc.SearchByPhone(r.Context(), phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrders(rows))
	}
}

func TransitionOrder(svc internalorders.FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload TransitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID:      orderID,
			Target:       enums.OrderStatus(payload.Status),
			Actor:        actorFrom(r),
			OverrideRisk: payload.OverrideRisk,
			Note:         validators.SanitizeString(payload.Note, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransition(result))
	}
}

// DispatchOrder books the courier consignment. Repeating it never books twice.
func DispatchOrder(svc internalorders.FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Dispatch(r.Context(), orderID, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDispatch(result))
	}
}

func RefreshCourierStatus(svc internalorders.FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RefreshCourierStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, CourierStatusResponse{
			Order:          dto.NewOrder(result.Order),
			Status:         result.Status,
			Known:          result.Known,
			CheckedAt:      result.CheckedAt,
			Reconciliation: result.Reconciliation,
		})
	}
}
