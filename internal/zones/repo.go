package zones

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Repository reads delivery zones. Zones are managed outside this service.
type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	ListActive(ctx context.Context) ([]models.DeliveryZone, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery zone repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	return zones, nil
}
