package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

// QuoteInput is the live cart shown on the checkout page.
type QuoteInput struct {
	Cart           []models.CartLine
	DeliveryZoneID *uuid.UUID
	CouponCode     string
}

// CouponRejection explains why a coupon was left out of a quote.
type CouponRejection struct {
	Code    string           `json:"code"`
	Reason  pkgerrors.Reason `json:"reason"`
	Message string           `json:"message"`
}

type QuoteResult struct {
	Quote  pricing.Quote
	Coupon *CouponRejection
}

// QuoteService prices a cart the same way conversion does.
type QuoteService interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
}

type quoteService struct {
	engine  *pricing.Engine
	coupons couponResolver
	zones   zoneResolver
}

func NewQuoteService(engine *pricing.Engine, coupons couponResolver, zones zoneResolver) (QuoteService, error) {
	switch {
	case engine == nil:
		return nil, fmt.Errorf("pricing engine required")
	case coupons == nil:
		return nil, fmt.Errorf("coupon resolver required")
	case zones == nil:
		return nil, fmt.Errorf("zone resolver required")
	}
	return &quoteService{engine: engine, coupons: coupons, zones: zones}, nil
}

// Quote never fails on a bad coupon. The coupon is dropped and the
// rejection is reported next to the price.
func (s *quoteService) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	zone, err := s.zones.Resolve(ctx, input.DeliveryZoneID)
	if err != nil {
		return nil, err
	}
	lines := toPricingLines(input.Cart)
	base, err := s.engine.Price(lines, zone, nil)
	if err != nil {
		return nil, err
	}

	coupon, err := s.coupons.Resolve(ctx, input.CouponCode, base.Subtotal)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			return nil, err
		}
		return &QuoteResult{
			Quote: base,
			Coupon: &CouponRejection{
				Code:    input.CouponCode,
				Reason:  typed.Reason(),
				Message: typed.Message(),
			},
		}, nil
	}
	if coupon == nil {
		return &QuoteResult{Quote: base}, nil
	}

	quote, err := s.engine.Price(lines, zone, coupon)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote}, nil
}
