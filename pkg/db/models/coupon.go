package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

type Coupon struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code           string           `gorm:"column:code;not null;uniqueIndex"`
	Type           enums.CouponType `gorm:"column:type;not null"`
	Value          decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscount    *int64           `gorm:"column:max_discount"`
	MinOrderAmount *int64           `gorm:"column:min_order_amount"`
	IsActive       bool             `gorm:"column:is_active;not null"`
	ValidFrom      *time.Time       `gorm:"column:valid_from"`
	ValidUntil     *time.Time       `gorm:"column:valid_until"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Coupon) TableName() string { return "coupons" }
