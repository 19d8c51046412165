package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

const activeSessionIndex = "ux_checkout_sessions_active"

// SaveOutcome reports what an upsert did.
type SaveOutcome string

const (
	SaveInserted SaveOutcome = "inserted"
	SaveUpdated  SaveOutcome = "updated"
	// SaveStale means a newer revision is already stored or the session was converted.
	SaveStale SaveOutcome = "stale"
)

// Snapshot is one autosave submission.
type Snapshot struct {
	SessionID      string
	Customer       models.CustomerSnapshot
	Cart           []models.CartLine
	DeliveryZoneID *uuid.UUID
	Revision       int64
	SubmittedAt    time.Time
}

// Repository persists checkout sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Save(ctx context.Context, snap Snapshot) (SaveOutcome, error)
	FindActive(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	FindConverted(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	MarkConverted(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error)
	ListAbandoned(ctx context.Context, before time.Time, limit int) ([]models.CheckoutSession, error)
	DeleteActive(ctx context.Context, sessionID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Save updates the active row when the stored revision is older, otherwise
// inserts one. A concurrent insert losing the race on the active index is
// retried as an update.
func (r *repository) Save(ctx context.Context, snap Snapshot) (SaveOutcome, error) {
	updated, err := r.updateActive(ctx, snap)
	if err != nil {
		return "", err
	}
	if updated {
		return SaveUpdated, nil
	}

	var existing int64
	if err := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ?", snap.SessionID).
		Count(&existing).Error; err != nil {
		return "", err
	}
	if existing > 0 {
		return SaveStale, nil
	}

	row := models.CheckoutSession{
		ID:             uuid.New(),
		SessionID:      snap.SessionID,
		Customer:       snap.Customer,
		Cart:           cartOrEmpty(snap.Cart),
		DeliveryZoneID: snap.DeliveryZoneID,
		Revision:       snap.Revision,
		IsConverted:    false,
		LastUpdatedAt:  snap.SubmittedAt,
	}
	err = r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return SaveInserted, nil
	}
	if !dbpkg.IsUniqueViolation(err, activeSessionIndex) {
		return "", err
	}

	updated, err = r.updateActive(ctx, snap)
	if err != nil {
		return "", err
	}
	if updated {
		return SaveUpdated, nil
	}
	return SaveStale, nil
}

func (r *repository) updateActive(ctx context.Context, snap Snapshot) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ? AND is_converted = ? AND revision < ?", snap.SessionID, false, snap.Revision).
		Select("customer", "cart", "delivery_zone_id", "revision", "last_updated_at").
		Updates(models.CheckoutSession{
			Customer:       snap.Customer,
			Cart:           cartOrEmpty(snap.Cart),
			DeliveryZoneID: snap.DeliveryZoneID,
			Revision:       snap.Revision,
			LastUpdatedAt:  snap.SubmittedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindActive(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var row models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND is_converted = ?", sessionID, false).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindConverted(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var row models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND is_converted = ?", sessionID, true).
		Order("last_updated_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkConverted flips the active row to converted. Zero rows affected means
// there was nothing left to convert.
func (r *repository) MarkConverted(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ? AND is_converted = ?", sessionID, false).
		Updates(map[string]any{
			"is_converted":       true,
			"converted_order_id": orderID,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListAbandoned(ctx context.Context, before time.Time, limit int) ([]models.CheckoutSession, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("is_converted = ? AND last_updated_at < ?", false, before).
		Order("last_updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteActive(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND is_converted = ?", sessionID, false).
		Delete(&models.CheckoutSession{})
	return res.RowsAffected, res.Error
}

func cartOrEmpty(cart []models.CartLine) []models.CartLine {
	if cart == nil {
		return []models.CartLine{}
	}
	return cart
}
