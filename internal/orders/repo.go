package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// Repository persists orders, their line items and the status audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPhone(ctx context.Context, canonicalPhone string, limit int) ([]models.Order, error)
	ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	ListForCourierPoll(ctx context.Context, checkedBefore time.Time, limit int) ([]models.Order, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, version int64, from, to enums.OrderStatus, at time.Time) (int64, error)
	ClaimDispatch(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (int64, error)
	ReleaseDispatchClaim(ctx context.Context, id uuid.UUID) error
	StoreConsignment(ctx context.Context, id uuid.UUID, consignment ConsignmentRecord, at time.Time) (int64, error)
	UpdateCourierStatus(ctx context.Context, id uuid.UUID, status string, checkedAt time.Time) error
}

// ConsignmentRecord is what the courier returned for a dispatched order.
type ConsignmentRecord struct {
	ConsignmentID string
	TrackingCode  string
	Status        string
}

var dispatchableStatuses = []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusProcessing}

var pollableStatuses = []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusShipped}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("LineItems").Create(order).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPhone(ctx context.Context, canonicalPhone string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("customer_phone = ?", canonicalPhone).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListForCourierPoll returns dispatched, unfinished orders whose courier status
// was never checked or was last checked before checkedBefore.
func (r *repository) ListForCourierPoll(ctx context.Context, checkedBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("courier_consignment_id IS NOT NULL").
		Where("order_status IN ?", pollableStatuses).
		Where("courier_status_checked_at IS NULL OR courier_status_checked_at < ?", checkedBefore).
		Order("courier_status_checked_at ASC NULLS FIRST").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus applies a transition only if nobody else changed the order since
// it was read.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, version int64, from, to enums.OrderStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ? AND order_status = ?", id, version, from).
		Updates(map[string]any{
			"order_status": to,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

// ClaimDispatch marks the order as being dispatched. A claim older than
// staleBefore is considered abandoned and may be taken over.
func (r *repository) ClaimDispatch(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND courier_consignment_id IS NULL AND order_status IN ?", id, dispatchableStatuses).
		Where("dispatch_claimed_at IS NULL OR dispatch_claimed_at < ?", staleBefore).
		Updates(map[string]any{"dispatch_claimed_at": now})
	return res.RowsAffected, res.Error
}

func (r *repository) ReleaseDispatchClaim(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND courier_consignment_id IS NULL", id).
		Update("dispatch_claimed_at", nil).Error
}

func (r *repository) StoreConsignment(ctx context.Context, id uuid.UUID, consignment ConsignmentRecord, at time.Time) (int64, error) {
	updates := map[string]any{
		"courier_consignment_id":    consignment.ConsignmentID,
		"courier_status_checked_at": at,
		"dispatched_at":             at,
		"dispatch_claimed_at":       nil,
		"version":                   gorm.Expr("version + 1"),
		"updated_at":                at,
	}
	if consignment.TrackingCode != "" {
		updates["courier_tracking_code"] = consignment.TrackingCode
	}
	if consignment.Status != "" {
		updates["courier_status"] = consignment.Status
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND courier_consignment_id IS NULL", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpdateCourierStatus records a poll attempt. An empty status only moves the
// checked timestamp so the order rotates to the back of the poll queue. It
// never touches order_status.
func (r *repository) UpdateCourierStatus(ctx context.Context, id uuid.UUID, status string, checkedAt time.Time) error {
	updates := map[string]any{"courier_status_checked_at": checkedAt}
	if status != "" {
		updates["courier_status"] = status
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
