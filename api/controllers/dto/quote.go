package dto

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
)

// QuoteLine is one priced cart row.
type QuoteLine struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	LineTotal int64      `json:"line_total"`
}

// Quote is the price breakdown shown to the shopper. Amounts are whole currency units.
type Quote struct {
	Lines            []QuoteLine `json:"lines"`
	ItemCount        int         `json:"item_count"`
	Subtotal         int64       `json:"subtotal"`
	TierPercent      string      `json:"tier_percent"`
	QuantityDiscount int64       `json:"quantity_discount"`
	CouponCode       string      `json:"coupon_code,omitempty"`
	CouponDiscount   int64       `json:"coupon_discount"`
	DiscountAmount   int64       `json:"discount_amount"`
	DeliveryCharge   int64       `json:"delivery_charge"`
	Total            int64       `json:"total"`
}

func NewQuote(q pricing.Quote) Quote {
	lines := make([]QuoteLine, 0, len(q.Lines))
	for _, line := range q.Lines {
		lines = append(lines, QuoteLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return Quote{
		Lines:            lines,
		ItemCount:        q.ItemCount,
		Subtotal:         q.Subtotal,
		TierPercent:      q.TierPercent.String(),
		QuantityDiscount: q.QuantityDiscount,
		CouponCode:       q.CouponCode,
		CouponDiscount:   q.CouponDiscount,
		DiscountAmount:   q.DiscountAmount,
		DeliveryCharge:   q.DeliveryCharge,
		Total:            q.Total,
	}
}

type Zone struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Charge int64     `json:"charge"`
}

func NewZones(zones []pricing.Zone) []Zone {
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, Zone{ID: z.ID, Name: z.Name, Charge: z.Charge})
	}
	return out
}
