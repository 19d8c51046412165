package checkout

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/api/validators"
	internalorders "github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

type CartLineRequest struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name" validate:"max=200"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
}

type CustomerRequest struct {
	Name    string `json:"name" validate:"max=120"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"max=254"`
	Address string `json:"address" validate:"max=500"`
	City    string `json:"city" validate:"max=120"`
	Area    string `json:"area" validate:"max=120"`
	Notes   string `json:"notes" validate:"max=1000"`
}

type QuoteRequest struct {
	Cart           []CartLineRequest `json:"cart" validate:"max=100,dive"`
	DeliveryZoneID *uuid.UUID        `json:"delivery_zone_id"`
	CouponCode     string            `json:"coupon_code" validate:"max=64"`
}

// SessionRequest is an autosave. Every field may be partial.
type SessionRequest struct {
	Customer       CustomerRequest   `json:"customer"`
	Cart           []CartLineRequest `json:"cart" validate:"max=100,dive"`
	DeliveryZoneID *uuid.UUID        `json:"delivery_zone_id"`
}

type PlaceOrderRequest struct {
	SessionID      string            `json:"session_id" validate:"max=128"`
	Customer       CustomerRequest   `json:"customer"`
	Cart           []CartLineRequest `json:"cart" validate:"max=100,dive"`
	DeliveryZoneID *uuid.UUID        `json:"delivery_zone_id"`
	CouponCode     string            `json:"coupon_code" validate:"max=64"`
	PaymentMethod  string            `json:"payment_method" validate:"omitempty,oneof=cod partial_prepay online_prepay"`
	AdvanceAmount  int64             `json:"advance_amount"`
}

func toCartLines(rows []CartLineRequest) []models.CartLine {
	out := make([]models.CartLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CartLine{
			ProductID:    row.ProductID,
			VariantID:    row.VariantID,
			Quantity:     row.Quantity,
			UnitPrice:    row.UnitPrice,
			NameSnapshot: validators.SanitizeString(row.Name, 200),
		})
	}
	return out
}

func toCustomer(c CustomerRequest) models.CustomerSnapshot {
	return models.CustomerSnapshot{
		Name:    validators.SanitizeString(c.Name, 120),
		Phone:   validators.SanitizeString(c.Phone, 32),
		Email:   validators.SanitizeString(c.Email, 254),
		Address: validators.SanitizeString(c.Address, 500),
		City:    validators.SanitizeString(c.City, 120),
		Area:    validators.SanitizeString(c.Area, 120),
		Notes:   validators.SanitizeString(c.Notes, 1000),
	}
}

func toQuoteInput(payload QuoteRequest) internalorders.QuoteInput {
	return internalorders.QuoteInput{
		Cart:           toCartLines(payload.Cart),
		DeliveryZoneID: payload.DeliveryZoneID,
		CouponCode:     validators.SanitizeString(payload.CouponCode, 64),
	}
}

func toSaveInput(sessionID string, payload SessionRequest) sessions.SaveInput {
	return sessions.SaveInput{
		SessionID:      sessionID,
		Customer:       toCustomer(payload.Customer),
		Cart:           toCartLines(payload.Cart),
		DeliveryZoneID: payload.DeliveryZoneID,
	}
}

func toSubmitInput(payload PlaceOrderRequest) internalorders.SubmitInput {
	return internalorders.SubmitInput{
		SessionID:      validators.SanitizeString(payload.SessionID, 128),
		Customer:       toCustomer(payload.Customer),
		Cart:           toCartLines(payload.Cart),
		DeliveryZoneID: payload.DeliveryZoneID,
		CouponCode:     validators.SanitizeString(payload.CouponCode, 64),
		PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
		AdvanceAmount:  payload.AdvanceAmount,
	}
}
