package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

type OrderLineItem struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	LineTotal int64      `json:"line_total"`
}

type Courier struct {
	ConsignmentID string     `json:"consignment_id"`
	TrackingCode  string     `json:"tracking_code,omitempty"`
	Status        string     `json:"status,omitempty"`
	CheckedAt     *time.Time `json:"checked_at,omitempty"`
	DispatchedAt  *time.Time `json:"dispatched_at,omitempty"`
}

// Order is the public shape of a placed order.
type Order struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	CustomerEmail    *string             `json:"customer_email,omitempty"`
	Address          string              `json:"address"`
	City             string              `json:"city"`
	Area             *string             `json:"area,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
	Subtotal         int64               `json:"subtotal"`
	QuantityDiscount int64               `json:"quantity_discount"`
	CouponCode       *string             `json:"coupon_code,omitempty"`
	CouponDiscount   int64               `json:"coupon_discount"`
	DiscountAmount   int64               `json:"discount_amount"`
	DeliveryCharge   int64               `json:"delivery_charge"`
	TotalAmount      int64               `json:"total_amount"`
	AdvanceAmount    int64               `json:"advance_amount"`
	DeliveryZoneID   *uuid.UUID          `json:"delivery_zone_id,omitempty"`
	Courier          *Courier            `json:"courier,omitempty"`
	LineItems        []OrderLineItem     `json:"line_items,omitempty"`
	Version          int64               `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type StatusEvent struct {
	FromStatus   *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus     enums.OrderStatus  `json:"to_status"`
	Actor        string             `json:"actor"`
	Note         *string            `json:"note,omitempty"`
	RiskOverride bool               `json:"risk_override"`
	CreatedAt    time.Time          `json:"created_at"`
}

func NewOrder(o *models.Order) *Order {
	if o == nil {
		return nil
	}
	out := &Order{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.OrderStatus,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		CustomerEmail:    o.CustomerEmail,
		Address:          o.Address,
		City:             o.City,
		Area:             o.Area,
		Notes:            o.Notes,
		Subtotal:         o.Subtotal,
		QuantityDiscount: o.QuantityDiscount,
		CouponCode:       o.CouponCode,
		CouponDiscount:   o.CouponDiscount,
		DiscountAmount:   o.DiscountAmount,
		DeliveryCharge:   o.DeliveryCharge,
		TotalAmount:      o.TotalAmount,
		AdvanceAmount:    o.AdvanceAmount,
		DeliveryZoneID:   o.DeliveryZoneID,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.CourierConsignmentID != nil {
		out.Courier = &Courier{
			ConsignmentID: *o.CourierConsignmentID,
			TrackingCode:  deref(o.CourierTrackingCode),
			Status:        deref(o.CourierStatus),
			CheckedAt:     o.CourierStatusCheckedAt,
			DispatchedAt:  o.DispatchedAt,
		}
	}
	for _, item := range o.LineItems {
		out.LineItems = append(out.LineItems, OrderLineItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return out
}

func NewOrders(rows []models.Order) []*Order {
	out := make([]*Order, 0, len(rows))
	for i := range rows {
		out = append(out, NewOrder(&rows[i]))
	}
	return out
}

func NewStatusEvents(rows []models.OrderStatusEvent) []StatusEvent {
	out := make([]StatusEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusEvent{
			FromStatus:   row.FromStatus,
			ToStatus:     row.ToStatus,
			Actor:        row.Actor,
			Note:         row.Note,
			RiskOverride: row.RiskOverride,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
