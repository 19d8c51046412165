package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/orderdesk-backend/pkg/phone"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type couponResolver interface {
	Resolve(ctx context.Context, code string, subtotal int64) (*pricing.Coupon, error)
}

type zoneResolver interface {
	Resolve(ctx context.Context, id *uuid.UUID) (*pricing.Zone, error)
}

type numberSource interface {
	Next(ctx context.Context) string
}

type autosaveCanceller interface {
	Cancel(sessionID string)
}

// ConversionService turns a checkout submission into an order exactly once per session.
type ConversionService interface {
	Convert(ctx context.Context, input SubmitInput) (*OrderResult, error)
}

type ConversionDeps struct {
	Tx       txRunner
	Orders   Repository
	Sessions sessions.Repository
	Engine   *pricing.Engine
	Coupons  couponResolver
	Zones    zoneResolver
	Numbers  numberSource
	Tracker  autosaveCanceller
	Outbox   outboxPublisher
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

type conversionService struct {
	tx       txRunner
	orders   Repository
	sessions sessions.Repository
	engine   *pricing.Engine
	coupons  couponResolver
	zones    zoneResolver
	numbers  numberSource
	tracker  autosaveCanceller
	outbox   outboxPublisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewConversionService(deps ConversionDeps) (ConversionService, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("sessions repository required")
	case deps.Engine == nil:
		return nil, fmt.Errorf("pricing engine required")
	case deps.Coupons == nil:
		return nil, fmt.Errorf("coupon resolver required")
	case deps.Zones == nil:
		return nil, fmt.Errorf("zone resolver required")
	case deps.Numbers == nil:
		return nil, fmt.Errorf("order number source required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &conversionService{
		tx:       deps.Tx,
		orders:   deps.Orders,
		sessions: deps.Sessions,
		engine:   deps.Engine,
		coupons:  deps.Coupons,
		zones:    deps.Zones,
		numbers:  deps.Numbers,
		tracker:  deps.Tracker,
		outbox:   deps.Outbox,
		metrics:  deps.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *conversionService) Convert(ctx context.Context, input SubmitInput) (*OrderResult, error) {
	input.SessionID = strings.TrimSpace(input.SessionID)
	if input.SessionID != "" {
		ctx = s.logg.WithSessionID(ctx, input.SessionID)
	}

	result, err := s.convert(ctx, input)
	switch {
	case err == nil:
		s.metrics.Conversion(metrics.ConversionCreated)
	case pkgerrors.HasReason(err, pkgerrors.ReasonAlreadyConverted):
		s.metrics.Conversion(metrics.ConversionAlreadyConverted)
	case pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeValidation:
		s.metrics.Conversion(metrics.ConversionRejected)
	default:
		s.metrics.Conversion(metrics.ConversionFailed)
		s.logg.Error(ctx, "order conversion failed", err)
	}
	return result, err
}

func (s *conversionService) convert(ctx context.Context, input SubmitInput) (*OrderResult, error) {
	customer, canonicalPhone, err := validateSubmission(&input)
	if err != nil {
		return nil, err
	}

	zone, err := s.zones.Resolve(ctx, input.DeliveryZoneID)
	if err != nil {
		return nil, err
	}
	lines := toPricingLines(input.Cart)
	base, err := s.engine.Price(lines, zone, nil)
	if err != nil {
		return nil, err
	}
	coupon, err := s.coupons.Resolve(ctx, input.CouponCode, base.Subtotal)
	if err != nil {
		return nil, err
	}
	quote, err := s.engine.Price(lines, zone, coupon)
	if err != nil {
		return nil, err
	}

	paymentStatus, err := initialPaymentStatus(input.PaymentMethod, input.AdvanceAmount, quote.Total)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      s.numbers.Next(ctx),
		SessionID:        optionalString(input.SessionID),
		CustomerName:     customer.Name,
		CustomerPhone:    canonicalPhone,
		CustomerEmail:    optionalString(customer.Email),
		Address:          customer.Address,
		City:             customer.City,
		Area:             optionalString(customer.Area),
		Notes:            optionalString(customer.Notes),
		Subtotal:         quote.Subtotal,
		QuantityDiscount: quote.QuantityDiscount,
		CouponDiscount:   quote.CouponDiscount,
		DiscountAmount:   quote.DiscountAmount,
		DeliveryCharge:   quote.DeliveryCharge,
		TotalAmount:      quote.Total,
		AdvanceAmount:    input.AdvanceAmount,
		PaymentMethod:    input.PaymentMethod,
		PaymentStatus:    paymentStatus,
		OrderStatus:      enums.OrderStatusPending,
		CouponCode:       optionalString(quote.CouponCode),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if zone != nil {
		order.DeliveryZoneID = &zone.ID
	}
	items := buildLineItems(order.ID, quote.Lines, now)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		sessionsRepo := s.sessions.WithTx(tx)

		if input.SessionID != "" {
			if err := ensureActiveSession(ctx, sessionsRepo, input, now); err != nil {
				return err
			}
		}
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return persistenceError(err, "create order")
		}
		if err := ordersRepo.CreateLineItems(ctx, items); err != nil {
			return persistenceError(err, "create order line items")
		}
		if err := ordersRepo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ToStatus:  enums.OrderStatusPending,
			Actor:     CustomerActor.Label(),
			CreatedAt: now,
		}); err != nil {
			return persistenceError(err, "record order status")
		}

		if input.SessionID == "" {
			return nil
		}
		// Marking the session converted is the last write, so a concurrent
		// conversion of the same session rolls back here.
		converted, err := sessionsRepo.MarkConverted(ctx, input.SessionID, order.ID)
		if err != nil {
			return persistenceError(err, "mark session converted")
		}
		if converted == 0 {
			return alreadyConverted(input.SessionID, nil)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.HasReason(err, pkgerrors.ReasonAlreadyConverted) {
			return nil, s.describeConverted(ctx, input.SessionID, err)
		}
		return nil, persistenceError(err, "convert checkout")
	}
	order.LineItems = items

	if input.SessionID != "" && s.tracker != nil {
		s.tracker.Cancel(input.SessionID)
	}
	s.emitOrderPlaced(ctx, order, quote)

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order placed")
	return &OrderResult{Order: order, Quote: quote}, nil
}

// ensureActiveSession makes sure the session has an active row to convert. A
// session that was never autosaved gets one from the submission itself.
func ensureActiveSession(ctx context.Context, repo sessions.Repository, input SubmitInput, now time.Time) error {
	_, err := repo.FindActive(ctx, input.SessionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return persistenceError(err, "load checkout session")
	}

	previous, err := repo.FindConverted(ctx, input.SessionID)
	if err == nil {
		return alreadyConverted(input.SessionID, previous.ConvertedOrderID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return persistenceError(err, "load checkout session")
	}

	_, err = repo.Save(ctx, sessions.Snapshot{
		SessionID:      input.SessionID,
		Customer:       input.Customer,
		Cart:           input.Cart,
		DeliveryZoneID: input.DeliveryZoneID,
		Revision:       now.UnixNano(),
		SubmittedAt:    now,
	})
	if err != nil {
		return persistenceError(err, "record checkout session")
	}
	return nil
}

// describeConverted attaches the existing order to an AlreadyConverted error
// when it can be found.
func (s *conversionService) describeConverted(ctx context.Context, sessionID string, cause error) error {
	previous, err := s.sessions.FindConverted(ctx, sessionID)
	if err != nil || previous.ConvertedOrderID == nil {
		return cause
	}
	details := map[string]any{"session_id": sessionID, "order_id": previous.ConvertedOrderID.String()}
	if order, err := s.orders.FindByID(ctx, *previous.ConvertedOrderID); err == nil {
		details["order_number"] = order.OrderNumber
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "checkout session was already converted").
		WithReason(pkgerrors.ReasonAlreadyConverted).
		WithDetails(details)
}

func (s *conversionService) emitOrderPlaced(ctx context.Context, order *models.Order, quote pricing.Quote) {
	items := make([]payloads.OrderPlacedItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, payloads.OrderPlacedItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	sessionID := ""
	if order.SessionID != nil {
		sessionID = *order.SessionID
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{ID: CustomerActor.ID, Role: CustomerActor.Role},
		Data: payloads.OrderPlacedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			SessionID:      sessionID,
			ItemCount:      quote.ItemCount,
			Subtotal:       order.Subtotal,
			DiscountAmount: order.DiscountAmount,
			DeliveryCharge: order.DeliveryCharge,
			TotalAmount:    order.TotalAmount,
			PaymentMethod:  order.PaymentMethod,
			CouponCode:     quote.CouponCode,
			Items:          items,
			PlacedAt:       order.CreatedAt,
		},
		OccurredAt: order.CreatedAt,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "purchase tracking event not recorded", err)
	}
}

func validateSubmission(input *SubmitInput) (models.CustomerSnapshot, string, error) {
	if len(input.Cart) == 0 {
		return models.CustomerSnapshot{}, "", pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithReason(pkgerrors.ReasonEmptyCart)
	}

	customer := input.Customer
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.City = strings.TrimSpace(customer.City)
	customer.Area = strings.TrimSpace(customer.Area)
	customer.Notes = strings.TrimSpace(customer.Notes)

	missing := []string{}
	for field, value := range map[string]string{
		"name":    customer.Name,
		"phone":   customer.Phone,
		"address": customer.Address,
		"city":    customer.City,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return customer, "", pkgerrors.New(pkgerrors.CodeValidation, "required customer fields are missing").
			WithDetails(map[string]any{"missing": missing})
	}

	canonical, ok := phone.Normalize(customer.Phone)
	if !ok {
		return customer, "", pkgerrors.New(pkgerrors.CodeValidation, "phone number is not a valid mobile number").
			WithReason(pkgerrors.ReasonInvalidPhone).
			WithDetails(map[string]any{"field": "phone"})
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodCashOnDelivery
	}
	if !input.PaymentMethod.IsValid() {
		return customer, "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}
	if input.AdvanceAmount < 0 {
		return customer, "", pkgerrors.New(pkgerrors.CodeValidation, "advance amount must not be negative")
	}
	return customer, canonical, nil
}

func initialPaymentStatus(method enums.PaymentMethod, advance, total int64) (enums.PaymentStatus, error) {
	switch method {
	case enums.PaymentMethodPartialPrepay:
		if advance <= 0 || advance >= total {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "partial prepayment must be greater than zero and less than the order total").
				WithDetails(map[string]any{"advance_amount": advance, "total_amount": total})
		}
		return enums.PaymentStatusPartial, nil
	case enums.PaymentMethodCashOnDelivery:
		if advance != 0 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery orders carry no advance")
		}
		return enums.PaymentStatusUnpaid, nil
	default:
		// online prepayment is settled by the gateway after the order exists
		return enums.PaymentStatusUnpaid, nil
	}
}

func alreadyConverted(sessionID string, orderID *uuid.UUID) error {
	details := map[string]any{"session_id": sessionID}
	if orderID != nil {
		details["order_id"] = orderID.String()
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "checkout session was already converted").
		WithReason(pkgerrors.ReasonAlreadyConverted).
		WithDetails(details)
}

func toPricingLines(cart []models.CartLine) []pricing.Line {
	lines := make([]pricing.Line, 0, len(cart))
	for _, row := range cart {
		lines = append(lines, pricing.Line{
			ProductID: row.ProductID,
			VariantID: row.VariantID,
			Name:      strings.TrimSpace(row.NameSnapshot),
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
		})
	}
	return lines
}

func buildLineItems(orderID uuid.UUID, lines []pricing.QuotedLine, now time.Time) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			Position:  i + 1,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
			CreatedAt: now,
		})
	}
	return items
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
