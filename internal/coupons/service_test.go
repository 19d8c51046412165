package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

type stubRepo struct {
	coupon *models.Coupon
	err    error
}

func (s stubRepo) FindByCode(context.Context, string) (*models.Coupon, error) {
	return s.coupon, s.err
}

func int64Ptr(v int64) *int64 { return &v }

func activeCoupon() *models.Coupon {
	return &models.Coupon{
		ID:       uuid.New(),
		Code:     "SAVE20",
		Type:     enums.CouponTypePercentage,
		Value:    decimal.NewFromInt(20),
		IsActive: true,
	}
}

func TestValidateReasons(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		mutate func(*models.Coupon)
		reason pkgerrors.Reason
	}{
		{name: "inactive", mutate: func(c *models.Coupon) { c.IsActive = false }, reason: pkgerrors.ReasonCouponInactive},
		{name: "not started", mutate: func(c *models.Coupon) { c.ValidFrom = &future }, reason: pkgerrors.ReasonCouponNotStarted},
		{name: "expired", mutate: func(c *models.Coupon) { c.ValidUntil = &past }, reason: pkgerrors.ReasonCouponExpired},
		{name: "below minimum", mutate: func(c *models.Coupon) { c.MinOrderAmount = int64Ptr(2000) }, reason: pkgerrors.ReasonCouponBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coupon := activeCoupon()
			tc.mutate(coupon)
			err := Validate(coupon, 1000, now)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
			assert.True(t, pkgerrors.HasReason(err, tc.reason))
		})
	}

	coupon := activeCoupon()
	coupon.ValidFrom = &past
	coupon.ValidUntil = &future
	coupon.MinOrderAmount = int64Ptr(1000)
	assert.NoError(t, Validate(coupon, 1000, now))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	svc, err := NewService(stubRepo{coupon: activeCoupon()})
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, "  ", 1000)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.Resolve(ctx, "save20", 1000)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SAVE20", got.Code)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(20)))

	svc, _ = NewService(stubRepo{err: gorm.ErrRecordNotFound})
	_, err = svc.Resolve(ctx, "NOPE", 1000)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonCouponNotFound))

	svc, _ = NewService(stubRepo{err: errors.New("connection reset")})
	_, err = svc.Resolve(ctx, "SAVE20", 1000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())

	_, err = NewService(nil)
	assert.Error(t, err)
}

func TestRepositoryFindByCodeIgnoresCase(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := activeCoupon()
	coupon.MaxDiscount = int64Ptr(150)
	require.NoError(t, conn.Create(coupon).Error)

	repo := NewRepository(conn)
	found, err := repo.FindByCode(context.Background(), " save20 ")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, found.ID)
	assert.True(t, found.IsActive)
	require.NotNil(t, found.MaxDiscount)
	assert.Equal(t, int64(150), *found.MaxDiscount)

	_, err = repo.FindByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
