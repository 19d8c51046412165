package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/orderdesk-backend/api/routes"
	"github.com/angelmondragon/orderdesk-backend/internal/coupons"
	"github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/internal/sessions"
	"github.com/angelmondragon/orderdesk-backend/internal/zones"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/courier"
	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/migrate"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	integrationMetrics := metrics.NewIntegrationMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	couponService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	requireResource(logg, "coupon service", err)
	zoneService, err := zones.NewService(zones.NewRepository(dbClient.DB()))
	requireResource(logg, "zone service", err)
	engine := pricing.NewEngine(pricing.TiersFromConfig(cfg.Pricing.QuantityTiers))

	sessionsRepo := sessions.NewRepository(dbClient.DB())
	tracker := sessions.NewTracker(sessionsRepo, sessions.TrackerOptions{
		Debounce:       cfg.Checkout.AutosaveDebounce,
		PersistTimeout: cfg.Checkout.PersistTimeout,
		Logger:         logg,
		Metrics:        checkoutMetrics,
	})
	sessionService, err := sessions.NewService(sessionsRepo, tracker, logg)
	requireResource(logg, "session service", err)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	fraudClient, err := fraud.NewClient(cfg.Fraud.APIKey,
		fraud.WithBaseURL(cfg.Fraud.BaseURL),
		fraud.WithTimeout(cfg.Fraud.Timeout),
	)
	requireResource(logg, "fraud client", err)
	riskService, err := risk.NewService(
		risk.NewCache(redisClient, cfg.Risk.CacheTTL, logg),
		fraudClient,
		risk.GatePolicyFromConfig(cfg.Risk),
		integrationMetrics,
		logg,
	)
	requireResource(logg, "risk service", err)

	courierClient, err := courier.NewClient(cfg.Courier.APIKey, cfg.Courier.SecretKey,
		courier.WithBaseURL(cfg.Courier.BaseURL),
		courier.WithTimeout(cfg.Courier.Timeout),
	)
	requireResource(logg, "courier client", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	conversion, err := orders.NewConversionService(orders.ConversionDeps{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Sessions: sessionsRepo,
		Engine:   engine,
		Coupons:  couponService,
		Zones:    zoneService,
		Numbers:  orders.NewNumberGenerator(redisClient, cfg.Checkout.OrderNumberPrefix, logg),
		Tracker:  tracker,
		Outbox:   outboxService,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	requireResource(logg, "conversion service", err)

	fulfillment, err := orders.NewFulfillmentService(orders.FulfillmentDeps{
		Tx:                 dbClient,
		Orders:             ordersRepo,
		Risk:               riskService,
		Courier:            courierClient,
		Outbox:             outboxService,
		CheckoutMetrics:    checkoutMetrics,
		IntegrationMetrics: integrationMetrics,
		Logger:             logg,
		AutoDispatchOn:     enums.OrderStatus(cfg.Courier.AutoDispatchOn),
		ClaimLease:         cfg.Courier.ClaimLease,
	})
	requireResource(logg, "fulfillment service", err)

	quotes, err := orders.NewQuoteService(engine, couponService, zoneService)
	requireResource(logg, "quote service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Quotes:      quotes,
			Conversion:  conversion,
			Fulfillment: fulfillment,
			Tracker:     tracker,
			Zones:       zoneService,
			Sessions:    sessionService,
			Risk:        riskService,
			Courier:     courierClient,
			DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
			HTTPMetrics: httpMetrics,
			Gatherer:    prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown failed", err)
	}
	// flush pending autosaves before the database goes away
	tracker.Close(shutdownCtx)
	logg.Info(shutdownCtx, "api server stopped")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
