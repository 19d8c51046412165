package pricing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Line is one cart row as priced by the engine.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Name      string
	Quantity  int
	UnitPrice int64
}

// Tier grants Percent off the subtotal once the cart holds MinItems units.
type Tier struct {
	MinItems int
	Percent  decimal.Decimal
}

// Zone is the delivery destination selected at checkout.
type Zone struct {
	ID     uuid.UUID
	Name   string
	Charge int64
}

// Coupon is an already-validated coupon ready to be applied.
type Coupon struct {
	Code        string
	Type        enums.CouponType
	Value       decimal.Decimal
	MaxDiscount *int64
}

// QuotedLine is a priced cart row.
type QuotedLine struct {
	Line
	LineTotal int64
}

// Quote is the full price breakdown. All amounts are whole currency units.
type Quote struct {
	Lines            []QuotedLine
	ItemCount        int
	Subtotal         int64
	TierPercent      decimal.Decimal
	QuantityDiscount int64
	CouponCode       string
	CouponDiscount   int64
	DiscountAmount   int64
	DeliveryCharge   int64
	Total            int64
}

// Engine prices carts. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	tiers []Tier
}

// NewEngine builds an engine over the quantity tier table.
func NewEngine(tiers []Tier) *Engine {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinItems < sorted[j].MinItems })
	return &Engine{tiers: sorted}
}

// TiersFromConfig converts the configured table.
func TiersFromConfig(cfg config.QuantityTiers) []Tier {
	tiers := make([]Tier, 0, len(cfg))
	for _, t := range cfg {
		tiers = append(tiers, Tier{MinItems: t.MinItems, Percent: t.Percent})
	}
	return tiers
}

// Tiers returns a copy of the tier table.
func (e *Engine) Tiers() []Tier {
	out := make([]Tier, len(e.tiers))
	copy(out, e.tiers)
	return out
}

// Price computes the quote for a cart. zone and coupon are optional.
func (e *Engine) Price(lines []Line, zone *Zone, coupon *Coupon) (Quote, error) {
	quote := Quote{
		Lines:       make([]QuotedLine, 0, len(lines)),
		TierPercent: decimal.Zero,
	}

	for i, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, invalidLine(i, "quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return Quote{}, invalidLine(i, "unit price cannot be negative")
		}
		lineTotal := line.UnitPrice * int64(line.Quantity)
		quote.Lines = append(quote.Lines, QuotedLine{Line: line, LineTotal: lineTotal})
		quote.Subtotal += lineTotal
		quote.ItemCount += line.Quantity
	}

	if tier, ok := e.tierFor(quote.ItemCount); ok {
		quote.TierPercent = tier.Percent
		quote.QuantityDiscount = clamp(percentOf(quote.Subtotal, tier.Percent), 0, quote.Subtotal)
	}

	if coupon != nil {
		quote.CouponCode = coupon.Code
		discount, err := couponDiscount(*coupon, quote.Subtotal)
		if err != nil {
			return Quote{}, err
		}
		quote.CouponDiscount = clamp(discount, 0, quote.Subtotal-quote.QuantityDiscount)
	}
	quote.DiscountAmount = quote.QuantityDiscount + quote.CouponDiscount

	if zone != nil {
		if zone.Charge < 0 {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery charge cannot be negative")
		}
		quote.DeliveryCharge = zone.Charge
	}

	quote.Total = quote.Subtotal - quote.DiscountAmount + quote.DeliveryCharge
	if quote.Total < 0 {
		quote.Total = 0
	}
	return quote, nil
}

func (e *Engine) tierFor(items int) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, tier := range e.tiers {
		if items >= tier.MinItems {
			best, found = tier, true
		}
	}
	return best, found
}

func couponDiscount(c Coupon, subtotal int64) (int64, error) {
	switch c.Type {
	case enums.CouponTypePercentage:
		discount := percentOf(subtotal, c.Value)
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
		return discount, nil
	case enums.CouponTypeFixed:
		return c.Value.Round(0).IntPart(), nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported coupon type %q", c.Type))
	}
}

// percentOf rounds half away from zero to whole units.
func percentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func invalidLine(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart line %d: %s", index, msg)).
		WithDetails(map[string]any{"line": index})
}
