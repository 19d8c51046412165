package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OrderPlacedEvent is the purchase-tracking signal emitted once per order.
type OrderPlacedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	SessionID      string              `json:"session_id,omitempty"`
	ItemCount      int                 `json:"item_count"`
	Subtotal       int64               `json:"subtotal"`
	DiscountAmount int64               `json:"discount_amount"`
	DeliveryCharge int64               `json:"delivery_charge"`
	TotalAmount    int64               `json:"total_amount"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	Items          []OrderPlacedItem   `json:"items"`
	PlacedAt       time.Time           `json:"placed_at"`
}

// OrderPlacedItem is one purchased line.
type OrderPlacedItem struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
}

// OrderStatusChangedEvent mirrors one row of the order audit trail.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Actor        string            `json:"actor"`
	RiskOverride bool              `json:"risk_override,omitempty"`
	Note         string            `json:"note,omitempty"`
	ChangedAt    time.Time         `json:"changed_at"`
}

// OrderDispatchedEvent is emitted when the courier accepts a consignment.
type OrderDispatchedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	ConsignmentID string    `json:"consignment_id"`
	TrackingCode  string    `json:"tracking_code,omitempty"`
	CODAmount     int64     `json:"cod_amount"`
	DispatchedAt  time.Time `json:"dispatched_at"`
}
