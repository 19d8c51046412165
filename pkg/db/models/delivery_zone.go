package models

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryZone struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Charge    int64     `gorm:"column:charge;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }
