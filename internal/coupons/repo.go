package coupons

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

// Repository reads coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindByCode matches codes case-insensitively. It returns gorm.ErrRecordNotFound
// when no coupon carries the code.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
