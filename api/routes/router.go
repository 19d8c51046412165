package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/orderdesk-backend/api/controllers/admin"
	checkoutcontrollers "github.com/angelmondragon/orderdesk-backend/api/controllers/checkout"
	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/courier"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

type sessionSaver interface {
	Save(ctx context.Context, in sessions.SaveInput)
}

type zoneLister interface {
	List(ctx context.Context) ([]pricing.Zone, error)
}

type deadLetterReader interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type balanceChecker interface {
	CheckBalance(ctx context.Context) courier.BalanceReport
}

// Dependencies are the services the HTTP surface is built over.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Quotes      orders.QuoteService
	Conversion  orders.ConversionService
	Fulfillment orders.FulfillmentService
	Tracker     sessionSaver
	Zones       zoneLister
	Sessions    sessions.Service
	Risk        risk.Service
	Courier     balanceChecker
	DeadLetters deadLetterReader
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotency := middleware.Idempotency(deps.Idempotency, cfg.Checkout.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", checkoutcontrollers.Quote(deps.Quotes, logg))
			r.Put("/sessions/{sessionId}", checkoutcontrollers.SaveSession(deps.Tracker, logg))
			r.Get("/zones", checkoutcontrollers.Zones(deps.Zones, logg))
		})
		r.With(idempotency).Post("/orders", checkoutcontrollers.PlaceOrder(deps.Conversion, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Operator(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.OperatorRoleOperator, enums.OperatorRoleAdmin),
		)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admincontrollers.OrdersByPhone(deps.Fulfillment, logg))
			r.Get("/{orderId}", admincontrollers.OrderDetail(deps.Fulfillment, logg))
			r.With(idempotency).Post("/{orderId}/transition", admincontrollers.TransitionOrder(deps.Fulfillment, logg))
			r.With(idempotency).Post("/{orderId}/dispatch", admincontrollers.DispatchOrder(deps.Fulfillment, logg))
			r.Post("/{orderId}/courier-status", admincontrollers.RefreshCourierStatus(deps.Fulfillment, logg))
		})

		r.Get("/risk", admincontrollers.CheckRisk(deps.Risk, logg))
		r.With(middleware.RequireRole(logg, enums.OperatorRoleAdmin)).
			Delete("/risk/cache", admincontrollers.ClearRiskCache(deps.Risk, logg))

		r.Get("/courier/balance", admincontrollers.CourierBalance(deps.Courier, logg))

		r.Route("/outbox/dlq", func(r chi.Router) {
			r.Get("/", admincontrollers.DeadLetters(deps.DeadLetters, logg))
			r.Get("/{eventId}", admincontrollers.DeadLetter(deps.DeadLetters, logg))
		})

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.Get("/", admincontrollers.AbandonedSessions(deps.Sessions, cfg.Checkout.AbandonedAfter, logg))
			r.Get("/{sessionId}", admincontrollers.SessionDetail(deps.Sessions, logg))
		r.Delete("/{sessionId}", admincontrollers.DeleteSession(deps.Sessions, logg))
		})
	})

	return r
}
