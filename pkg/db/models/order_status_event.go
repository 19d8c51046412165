package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// OrderStatusEvent is the audit trail entry written for every status change.
type OrderStatusEvent struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	FromStatus   *enums.OrderStatus `gorm:"column:from_status"`
	ToStatus     enums.OrderStatus  `gorm:"column:to_status;not null"`
	Actor        string             `gorm:"column:actor;not null"`
	Note         *string            `gorm:"column:note"`
	RiskOverride bool               `gorm:"column:risk_override;not null;default:false"`
	CreatedAt    time.Time          `gorm:"column:created_at;not null"`
}

func (OrderStatusEvent) TableName() string { return "order_status_events" }
