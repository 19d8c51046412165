package checkout

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderdesk-backend/api/controllers/dto"
	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	internalorders "github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type sessionSaver interface {
	Save(ctx context.Context, in sessions.SaveInput)
}

type zoneLister interface {
	List(ctx context.Context) ([]pricing.Zone, error)
}

// Quote prices the live cart. A rejected coupon is reported, not failed.
func Quote(svc internalorders.QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		var payload QuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), toQuoteInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, QuoteResponse{
			Quote:  dto.NewQuote(result.Quote),
			Coupon: result.Coupon,
		})
	}
}

// SaveSession schedules an autosave and answers before anything is persisted.
func SaveSession(tracker sessionSaver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session tracker unavailable"))
			return
		}

		sessionID := validators.SanitizeString(chi.URLParam(r, "sessionId"), 128)
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		var payload SessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// the tracker outlives the request
		tracker.Save(context.WithoutCancel(r.Context()), toSaveInput(sessionID, payload))
		responses.WriteSuccessStatus(w, http.StatusAccepted, SessionAccepted{SessionID: sessionID, Status: "accepted"})
	}
}

func Zones(svc zoneLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone service unavailable"))
			return
		}
		zones, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewZones(zones))
	}
}

// PlaceOrder converts the submitted checkout into an order.
func PlaceOrder(svc internalorders.ConversionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.PaymentMethod = strings.TrimSpace(payload.PaymentMethod)

		result, err := svc.Convert(r.Context(), toSubmitInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, PlaceOrderResponse{
			Order: dto.NewOrder(result.Order),
			Quote: dto.NewQuote(result.Quote),
		})
	}
}
