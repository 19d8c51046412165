package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is an immutable price snapshot of one cart row.
type OrderLineItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	Position  int        `gorm:"column:position;not null"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Quantity  int        `gorm:"column:quantity;not null"`
	UnitPrice int64      `gorm:"column:unit_price;not null"`
	LineTotal int64      `gorm:"column:line_total;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }
