package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
)

const (
	defaultPollBatch  = 100
	defaultPollPerSec = 2.0
	defaultPollStale  = time.Hour
)

type courierPollSource interface {
	ListForCourierPoll(ctx context.Context, checkedBefore time.Time, limit int) ([]models.Order, error)
}

type courierStatusRefresher interface {
	RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*orders.CourierStatusResult, error)
}

type CourierStatusJobParams struct {
	Logger    *logger.Logger
	Orders    courierPollSource
	Refresher courierStatusRefresher
	Metrics   *metrics.CronJobMetrics
	// BatchSize caps the orders polled per run.
	BatchSize int
	// PerSecond paces calls to the courier API.
	PerSecond float64
	// StaleAfter skips orders whose status was checked more recently than this.
	StaleAfter time.Duration
}

// NewCourierStatusJob polls the courier for dispatched, undelivered orders.
// The order status itself is never changed; mismatches are logged for operators.
func NewCourierStatusJob(params CourierStatusJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("courier status refresher required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPollBatch
	}
	perSec := params.PerSecond
	if perSec <= 0 {
		perSec = defaultPollPerSec
	}
	stale := params.StaleAfter
	if stale <= 0 {
		stale = defaultPollStale
	}
	return &courierStatusJob{
		logg:      params.Logger,
		orders:    params.Orders,
		refresher: params.Refresher,
		metrics:   params.Metrics,
		batch:     batch,
		limiter:   rate.NewLimiter(rate.Limit(perSec), 1),
		stale:     stale,
		now:       time.Now,
	}, nil
}

type courierStatusJob struct {
	logg      *logger.Logger
	orders    courierPollSource
	refresher courierStatusRefresher
	metrics   *metrics.CronJobMetrics
	batch     int
	limiter   *rate.Limiter
	stale     time.Duration
	now       func() time.Time
}

func (j *courierStatusJob) Name() string { return "courier-status-poll" }

func (j *courierStatusJob) Run(ctx context.Context) error {
	due, err := j.orders.ListForCourierPoll(ctx, j.now().UTC().Add(-j.stale), j.batch)
	if err != nil {
		return fmt.Errorf("list orders for courier poll: %w", err)
	}

	var (
		errs       error
		refreshed  int
		unknown    int
		mismatched int
	)
	for _, order := range due {
		if err := j.limiter.Wait(ctx); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		result, err := j.refresher.RefreshCourierStatus(ctx, order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderNumber, err))
			continue
		}
		refreshed++
		if !result.Known {
			unknown++
			continue
		}
		switch result.Reconciliation {
		case enums.CourierReconciliationCourierAhead, enums.CourierReconciliationCourierCancelled:
			mismatched++
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"order_id":       order.ID.String(),
				"order_number":   order.OrderNumber,
				"order_status":   order.OrderStatus,
				"courier_status": result.Status,
				"reconciliation": result.Reconciliation,
			}), "courier status disagrees with order status")
		}
	}

	j.metrics.AddItems(j.Name(), refreshed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":        len(due),
		"refreshed":  refreshed,
		"unknown":    unknown,
		"mismatched": mismatched,
		"failed":     len(multierr.Errors(errs)),
	}), "courier status poll complete")
	return errs
}
