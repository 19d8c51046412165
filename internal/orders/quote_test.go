package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

func newQuoteService(t *testing.T, f *fixture) QuoteService {
	t.Helper()
	svc, err := NewQuoteService(f.convDeps.Engine, f.convDeps.Coupons, f.convDeps.Zones)
	require.NoError(t, err)
	return svc
}

func TestQuoteMatchesConvertedOrder(t *testing.T) {
	f := newFixture(t)
	svc := newQuoteService(t, f)
	sub := f.submission(uuid.NewString())
	sub.CouponCode = "SAVE20"

	quoted, err := svc.Quote(context.Background(), QuoteInput{
		Cart:           sub.Cart,
		DeliveryZoneID: sub.DeliveryZoneID,
		CouponCode:     sub.CouponCode,
	})
	require.NoError(t, err)
	assert.Nil(t, quoted.Coupon)

	placed, err := f.conversion.Convert(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, quoted.Quote.Total, placed.Order.TotalAmount)
	assert.Equal(t, quoted.Quote.DiscountAmount, placed.Order.DiscountAmount)
	assert.Equal(t, int64(910), quoted.Quote.Total)
}

func TestQuoteReportsRejectedCoupon(t *testing.T) {
	f := newFixture(t)
	svc := newQuoteService(t, f)
	sub := f.submission("")

	result, err := svc.Quote(context.Background(), QuoteInput{
		Cart:           sub.Cart,
		DeliveryZoneID: sub.DeliveryZoneID,
		CouponCode:     "NOPE",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, pkgerrors.ReasonCouponNotFound, result.Coupon.Reason)
	assert.Equal(t, int64(1010), result.Quote.Total)
	assert.Empty(t, result.Quote.CouponCode)
}

func TestQuoteUnknownZoneFails(t *testing.T) {
	f := newFixture(t)
	svc := newQuoteService(t, f)
	missing := uuid.New()

	_, err := svc.Quote(context.Background(), QuoteInput{
		Cart:           f.submission("").Cart,
		DeliveryZoneID: &missing,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonUnknownZone, reasonOf(err))
}

func TestQuoteEmptyCartChargesDeliveryOnly(t *testing.T) {
	f := newFixture(t)
	svc := newQuoteService(t, f)

	result, err := svc.Quote(context.Background(), QuoteInput{DeliveryZoneID: &f.zone.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(60), result.Quote.Total)
}
