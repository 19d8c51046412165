package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

func defaultEngine() *Engine {
	return NewEngine([]Tier{
		{MinItems: 5, Percent: decimal.NewFromInt(10)},
		{MinItems: 3, Percent: decimal.NewFromInt(5)},
	})
}

func line(qty int, price int64) Line {
	return Line{ProductID: uuid.New(), Name: "item", Quantity: qty, UnitPrice: price}
}

func int64Ptr(v int64) *int64 { return &v }

func TestPriceQuantityTierAndDelivery(t *testing.T) {
	// three units adding up to 1000
	lines := []Line{line(1, 400), line(2, 300)}
	zone := &Zone{ID: uuid.New(), Name: "Inside Dhaka", Charge: 60}

	quote, err := defaultEngine().Price(lines, zone, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), quote.Subtotal)
	assert.Equal(t, 3, quote.ItemCount)
	assert.True(t, quote.TierPercent.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(50), quote.QuantityDiscount)
	assert.Equal(t, int64(0), quote.CouponDiscount)
	assert.Equal(t, int64(60), quote.DeliveryCharge)
	assert.Equal(t, int64(1010), quote.Total)
	assert.Equal(t, int64(600), quote.Lines[1].LineTotal)
}

func TestPriceHighestTierWins(t *testing.T) {
	quote, err := defaultEngine().Price([]Line{line(6, 100)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(60), quote.QuantityDiscount)
	assert.Equal(t, int64(540), quote.Total)
}

func TestPriceBelowFirstTier(t *testing.T) {
	quote, err := defaultEngine().Price([]Line{line(2, 250)}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, quote.QuantityDiscount)
	assert.True(t, quote.TierPercent.IsZero())
	assert.Equal(t, int64(500), quote.Total)
}

func TestPricePercentageCouponClampedToMax(t *testing.T) {
	coupon := &Coupon{
		Code:        "SAVE20",
		Type:        enums.CouponTypePercentage,
		Value:       decimal.NewFromInt(20),
		MaxDiscount: int64Ptr(100),
	}
	quote, err := defaultEngine().Price([]Line{line(1, 1000)}, nil, coupon)
	require.NoError(t, err)
	assert.Equal(t, int64(100), quote.CouponDiscount)
	assert.Equal(t, int64(100), quote.DiscountAmount)
	assert.Equal(t, int64(900), quote.Total)
	assert.Equal(t, "SAVE20", quote.CouponCode)
}

func TestPriceFixedCouponNeverExceedsSubtotal(t *testing.T) {
	coupon := &Coupon{Code: "BIG", Type: enums.CouponTypeFixed, Value: decimal.NewFromInt(5000)}
	quote, err := defaultEngine().Price([]Line{line(3, 100)}, &Zone{Charge: 60}, coupon)
	require.NoError(t, err)

	assert.Equal(t, int64(15), quote.QuantityDiscount)
	assert.Equal(t, int64(285), quote.CouponDiscount)
	assert.Equal(t, quote.Subtotal, quote.DiscountAmount)
	assert.Equal(t, int64(60), quote.Total)
}

func TestPriceRoundsHalfAwayFromZero(t *testing.T) {
	engine := NewEngine([]Tier{{MinItems: 1, Percent: decimal.NewFromInt(5)}})
	// 5% of 130 is 6.5
	quote, err := engine.Price([]Line{line(1, 130)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), quote.QuantityDiscount)
}

func TestPriceEmptyCartIsZero(t *testing.T) {
	quote, err := defaultEngine().Price(nil, &Zone{Charge: 60}, nil)
	require.NoError(t, err)
	assert.Zero(t, quote.Subtotal)
	assert.Equal(t, int64(60), quote.Total)
}

func TestPriceRejectsInvalidLines(t *testing.T) {
	for _, bad := range []Line{line(0, 100), line(-1, 100), line(1, -5)} {
		_, err := defaultEngine().Price([]Line{bad}, nil, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	lines := []Line{line(2, 199), line(3, 49)}
	coupon := &Coupon{Code: "TEN", Type: enums.CouponTypePercentage, Value: decimal.RequireFromString("10.5")}
	zone := &Zone{Charge: 120}

	first, err := defaultEngine().Price(lines, zone, coupon)
	require.NoError(t, err)
	second, err := defaultEngine().Price(lines, zone, coupon)
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.GreaterOrEqual(t, first.Total, int64(0))
}

func TestTiersFromConfig(t *testing.T) {
	var cfg config.QuantityTiers
	require.NoError(t, cfg.Decode("3:5,5:10"))
	engine := NewEngine(TiersFromConfig(cfg))
	tiers := engine.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, 3, tiers[0].MinItems)
}
