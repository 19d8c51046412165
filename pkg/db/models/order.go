package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// Order is the durable record of a placed purchase. Money columns are whole
// currency units and frozen at creation.
type Order struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string    `gorm:"column:order_number;not null;uniqueIndex"`
	SessionID     *string   `gorm:"column:session_id"`
	CustomerName  string    `gorm:"column:customer_name;not null"`
	CustomerPhone string    `gorm:"column:customer_phone;not null"`
	CustomerEmail *string   `gorm:"column:customer_email"`
	Address       string    `gorm:"column:address;not null"`
	City          string    `gorm:"column:city;not null"`
	Area          *string   `gorm:"column:area"`
	Notes         *string   `gorm:"column:notes"`

	Subtotal         int64 `gorm:"column:subtotal;not null"`
	QuantityDiscount int64 `gorm:"column:quantity_discount;not null;default:0"`
	CouponDiscount   int64 `gorm:"column:coupon_discount;not null;default:0"`
	DiscountAmount   int64 `gorm:"column:discount_amount;not null;default:0"`
	DeliveryCharge   int64 `gorm:"column:delivery_charge;not null;default:0"`
	TotalAmount      int64 `gorm:"column:total_amount;not null"`
	AdvanceAmount    int64 `gorm:"column:advance_amount;not null;default:0"`

	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;not null"`
	OrderStatus    enums.OrderStatus   `gorm:"column:order_status;not null"`
	CouponCode     *string             `gorm:"column:coupon_code"`
	DeliveryZoneID *uuid.UUID          `gorm:"column:delivery_zone_id;type:uuid"`

	CourierConsignmentID   *string    `gorm:"column:courier_consignment_id"`
	CourierTrackingCode    *string    `gorm:"column:courier_tracking_code"`
	CourierStatus          *string    `gorm:"column:courier_status"`
	CourierStatusCheckedAt *time.Time `gorm:"column:courier_status_checked_at"`
	DispatchedAt           *time.Time `gorm:"column:dispatched_at"`
	DispatchClaimedAt      *time.Time `gorm:"column:dispatch_claimed_at"`

	Version   int64     `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;references:ID"`
}

func (Order) TableName() string { return "orders" }
