package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/coupons"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	"github.com/angelmondragon/orderdesk-backend/internal/zones"
	"github.com/angelmondragon/orderdesk-backend/pkg/courier"
	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
)

type memCounter struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (c *memCounter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.values == nil {
		c.values = map[string]int64{}
	}
	c.values[key]++
	return c.values[key], nil
}

func (c *memCounter) OrderCounterKey(day string) string { return "orders:counter:" + day }

type stubRisk struct {
	signal fraud.Signal
	err    error
	calls  int
}

func (s *stubRisk) Check(_ context.Context, _ string) (risk.Assessment, error) {
	s.calls++
	if s.err != nil {
		return risk.Assessment{}, s.err
	}
	return risk.Assessment{Signal: s.signal, Tier: s.signal.Tier()}, nil
}

func (s *stubRisk) Policy() risk.GatePolicy { return risk.DefaultGatePolicy() }

type stubCourier struct {
	mu       sync.Mutex
	created  []courier.ConsignmentRequest
	createFn func(courier.ConsignmentRequest) (*courier.Consignment, error)
	report   courier.StatusReport
}

func (s *stubCourier) CreateConsignment(_ context.Context, in courier.ConsignmentRequest) (*courier.Consignment, error) {
	s.mu.Lock()
	s.created = append(s.created, in)
	n := len(s.created)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(in)
	}
	return &courier.Consignment{
		ConsignmentID: fmt.Sprintf("CN-%d", n),
		TrackingCode:  fmt.Sprintf("TRK%d", n),
		Status:        courier.StatusInReview,
	}, nil
}

func (s *stubCourier) CheckStatus(_ context.Context, consignmentID string) courier.StatusReport {
	report := s.report
	report.ConsignmentID = consignmentID
	return report
}

func (s *stubCourier) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

type fixture struct {
	conn       *gorm.DB
	client     *db.Client
	orders     Repository
	sessions   sessions.Repository
	zone       models.DeliveryZone
	risk       *stubRisk
	courier    *stubCourier
	conversion ConversionService
	convDeps   ConversionDeps
	fulfill    *fulfillmentService
}

type fixtureOption func(*FulfillmentDeps)

func withAutoDispatch(status enums.OrderStatus) fixtureOption {
	return func(d *FulfillmentDeps) { d.AutoDispatchOn = status }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	zone := models.DeliveryZone{ID: uuid.New(), Name: "Inside Dhaka", Charge: 60, IsActive: true}
	require.NoError(t, conn.Create(&zone).Error)
	maxDiscount := int64(100)
	require.NoError(t, conn.Create(&models.Coupon{
		ID:          uuid.New(),
		Code:        "SAVE20",
		Type:        enums.CouponTypePercentage,
		Value:       decimal.NewFromInt(20),
		MaxDiscount: &maxDiscount,
		IsActive:    true,
	}).Error)

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	require.NoError(t, err)
	zoneSvc, err := zones.NewService(zones.NewRepository(conn))
	require.NoError(t, err)

	ordersRepo := NewRepository(conn)
	sessionsRepo := sessions.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)
	engine := pricing.NewEngine([]pricing.Tier{
		{MinItems: 3, Percent: decimal.NewFromInt(5)},
		{MinItems: 5, Percent: decimal.NewFromInt(10)},
	})

	convDeps := ConversionDeps{
		Tx:       client,
		Orders:   ordersRepo,
		Sessions: sessionsRepo,
		Engine:   engine,
		Coupons:  couponSvc,
		Zones:    zoneSvc,
		Numbers:  NewNumberGenerator(&memCounter{}, "OD", nil),
		Outbox:   outboxSvc,
	}
	conversion, err := NewConversionService(convDeps)
	require.NoError(t, err)

	riskStub := &stubRisk{}
	courierStub := &stubCourier{report: courier.StatusReport{Status: courier.StatusInReview, Known: true}}
	deps := FulfillmentDeps{
		Tx:      client,
		Orders:  ordersRepo,
		Risk:    riskStub,
		Courier: courierStub,
		Outbox:  outboxSvc,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	fulfill, err := NewFulfillmentService(deps)
	require.NoError(t, err)

	return &fixture{
		conn:       conn,
		client:     client,
		orders:     ordersRepo,
		sessions:   sessionsRepo,
		zone:       zone,
		risk:       riskStub,
		courier:    courierStub,
		conversion: conversion,
		convDeps:   convDeps,
		fulfill:    fulfill.(*fulfillmentService),
	}
}

// submission is three units worth 1000 delivered inside Dhaka.
func (f *fixture) submission(sessionID string) SubmitInput {
	return SubmitInput{
		SessionID: sessionID,
		Customer: models.CustomerSnapshot{
			Name:    "Rahim Uddin",
			Phone:   "+880 1712-345678",
			Address: "House 12, Road 5",
			City:    "Dhaka",
			Area:    "Dhanmondi",
		},
		Cart: []models.CartLine{
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: 400, NameSnapshot: "Kurti"},
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: 300, NameSnapshot: "Orna"},
		},
		DeliveryZoneID: &f.zone.ID,
	}
}

func (f *fixture) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	result, err := f.conversion.Convert(context.Background(), f.submission(uuid.NewString()))
	require.NoError(t, err)
	return result.Order
}

func (f *fixture) moveTo(t *testing.T, order *models.Order, statuses ...enums.OrderStatus) *models.Order {
	t.Helper()
	for _, status := range statuses {
		result, err := f.fulfill.Transition(context.Background(), TransitionInput{
			OrderID: order.ID,
			Target:  status,
			Actor:   Actor{ID: "op-1", Role: "operator"},
		})
		require.NoError(t, err)
		order = result.Order
	}
	return order
}

func (f *fixture) countOutbox(t *testing.T, eventType enums.OutboxEventType, aggregateID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).
		Count(&n).Error)
	return n
}

func reasonOf(err error) pkgerrors.Reason {
	return pkgerrors.As(err).Reason()
}

func detailsOf(t *testing.T, err error) map[string]any {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	return details
}
