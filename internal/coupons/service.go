package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

// Service resolves customer-entered coupon codes into priceable coupons.
type Service interface {
	Resolve(ctx context.Context, code string, subtotal int64) (*pricing.Coupon, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a coupon service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Resolve returns nil without error for a blank code.
func (s *service) Resolve(ctx context.Context, code string, subtotal int64) (*pricing.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rejection(pkgerrors.ReasonCouponNotFound, "coupon not found", code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup coupon").WithReason(pkgerrors.ReasonPersistence)
	}
	if err := Validate(coupon, subtotal, s.now()); err != nil {
		return nil, err
	}

	return &pricing.Coupon{
		Code:        coupon.Code,
		Type:        coupon.Type,
		Value:       coupon.Value,
		MaxDiscount: coupon.MaxDiscount,
	}, nil
}

// Validate checks that coupon can be applied to an order of subtotal at now.
func Validate(coupon *models.Coupon, subtotal int64, now time.Time) error {
	if coupon == nil {
		return rejection(pkgerrors.ReasonCouponNotFound, "coupon not found", "")
	}
	if !coupon.IsActive {
		return rejection(pkgerrors.ReasonCouponInactive, "coupon is not active", coupon.Code)
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return rejection(pkgerrors.ReasonCouponNotStarted, "coupon is not valid yet", coupon.Code)
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return rejection(pkgerrors.ReasonCouponExpired, "coupon has expired", coupon.Code)
	}
	if coupon.MinOrderAmount != nil && subtotal < *coupon.MinOrderAmount {
		return rejection(pkgerrors.ReasonCouponBelowMinimum, "order subtotal is below the coupon minimum", coupon.Code).
			WithDetails(map[string]any{"code": coupon.Code, "min_order_amount": *coupon.MinOrderAmount, "subtotal": subtotal})
	}
	return nil
}

func rejection(reason pkgerrors.Reason, msg, code string) *pkgerrors.Error {
	err := pkgerrors.New(pkgerrors.CodeValidation, msg).WithReason(reason)
	if code != "" {
		err = err.WithDetails(map[string]any{"code": code})
	}
	return err
}
