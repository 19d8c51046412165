package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CustomerSnapshot is the shopper-entered contact and shipping data.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
	City    string `json:"city"`
	Area    string `json:"area,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// IsBlank reports whether every field is empty after trimming.
func (c CustomerSnapshot) IsBlank() bool {
	for _, v := range []string{c.Name, c.Phone, c.Email, c.Address, c.City, c.Area, c.Notes} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// CartLine is one priced row of a cart snapshot.
type CartLine struct {
	ProductID    uuid.UUID  `json:"productId"`
	VariantID    *uuid.UUID `json:"variantId,omitempty"`
	Quantity     int        `json:"quantity"`
	UnitPrice    int64      `json:"unitPrice"`
	NameSnapshot string     `json:"name"`
}

// CheckoutSession is an anonymous draft of a purchase keyed by the client session id.
type CheckoutSession struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SessionID        string           `gorm:"column:session_id;not null"`
	Customer         CustomerSnapshot `gorm:"column:customer;type:jsonb;serializer:json;not null"`
	Cart             []CartLine       `gorm:"column:cart;type:jsonb;serializer:json;not null"`
	DeliveryZoneID   *uuid.UUID       `gorm:"column:delivery_zone_id;type:uuid"`
	Revision         int64            `gorm:"column:revision;not null;default:0"`
	IsConverted      bool             `gorm:"column:is_converted;not null;default:false"`
	ConvertedOrderID *uuid.UUID       `gorm:"column:converted_order_id;type:uuid"`
	LastUpdatedAt    time.Time        `gorm:"column:last_updated_at;not null"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }
