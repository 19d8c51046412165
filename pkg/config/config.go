package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Fraud        FraudConfig
	Courier      CourierConfig
	Pricing      PricingConfig
	Risk         RiskConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.Courier.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"ORDERDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ORDERDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERDESK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"ORDERDESK_DB_QUERY_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig verifies operator tokens issued by the admin identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"ORDERDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"ORDERDESK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"ORDERDESK_PUBSUB_ORDERS_TOPIC" default:"od-order-events"`
	OrdersSubscription string `envconfig:"ORDERDESK_PUBSUB_ORDERS_SUBSCRIPTION"`
	TrackingTopic      string `envconfig:"ORDERDESK_PUBSUB_TRACKING_TOPIC" default:"od-purchase-tracking"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORDERDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORDERDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORDERDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// DeliveredTTL bounds how long a publisher remembers delivered event ids.
	DeliveredTTL time.Duration `envconfig:"ORDERDESK_OUTBOX_DELIVERED_TTL" default:"72h"`

	// Retention is how long published rows are kept before the cron worker purges them.
	Retention time.Duration `envconfig:"ORDERDESK_OUTBOX_RETENTION" default:"720h"`
}

type FraudConfig struct {
	BaseURL string        `envconfig:"ORDERDESK_FRAUD_BASE_URL" default:"https://bdcourier.com/api"`
	APIKey  string        `envconfig:"ORDERDESK_FRAUD_API_KEY"`
	Timeout time.Duration `envconfig:"ORDERDESK_FRAUD_TIMEOUT" default:"8s"`
}

type CourierConfig struct {
	BaseURL   string        `envconfig:"ORDERDESK_COURIER_BASE_URL" default:"https://portal.packzy.com/api/v1"`
	APIKey    string        `envconfig:"ORDERDESK_COURIER_API_KEY"`
	SecretKey string        `envconfig:"ORDERDESK_COURIER_SECRET_KEY"`
	Timeout   time.Duration `envconfig:"ORDERDESK_COURIER_TIMEOUT" default:"10s"`
	// AutoDispatchOn names the order status whose entry triggers dispatch; empty disables it.
	AutoDispatchOn string        `envconfig:"ORDERDESK_COURIER_AUTO_DISPATCH_ON"`
	ClaimLease     time.Duration `envconfig:"ORDERDESK_COURIER_CLAIM_LEASE" default:"2m"`
}

func (c CourierConfig) validate() error {
	switch strings.TrimSpace(c.AutoDispatchOn) {
	case "", "confirmed", "processing":
		return nil
	default:
		return fmt.Errorf("courier auto dispatch status must be confirmed or processing, got %q", c.AutoDispatchOn)
	}
}

type PricingConfig struct {
	QuantityTiers QuantityTiers `envconfig:"ORDERDESK_PRICING_QUANTITY_TIERS" default:"3:5,5:10"`
}

// QuantityTier is one breakpoint of the item-count discount table.
type QuantityTier struct {
	MinItems int
	Percent  decimal.Decimal
}

// QuantityTiers decodes "minItems:percent" pairs separated by commas.
type QuantityTiers []QuantityTier

func (q *QuantityTiers) Decode(value string) error {
	tiers := QuantityTiers{}
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("quantity tier %q must be minItems:percent", raw)
		}
		minItems, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || minItems <= 0 {
			return fmt.Errorf("quantity tier %q has invalid item count", raw)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("quantity tier %q has invalid percent: %w", raw, err)
		}
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("quantity tier %q percent must be between 0 and 100", raw)
		}
		tiers = append(tiers, QuantityTier{MinItems: minItems, Percent: pct})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinItems < tiers[j].MinItems })
	*q = tiers
	return nil
}

type RiskConfig struct {
	CacheTTL        time.Duration `envconfig:"ORDERDESK_RISK_CACHE_TTL" default:"1h"`
	MinSuccessRatio float64       `envconfig:"ORDERDESK_RISK_MIN_SUCCESS_RATIO" default:"70"`
	MaxCancelled    int           `envconfig:"ORDERDESK_RISK_MAX_CANCELLED" default:"5"`
}

type CheckoutConfig struct {
	AutosaveDebounce   time.Duration `envconfig:"ORDERDESK_CHECKOUT_AUTOSAVE_DEBOUNCE" default:"1s"`
	PersistTimeout     time.Duration `envconfig:"ORDERDESK_CHECKOUT_PERSIST_TIMEOUT" default:"5s"`
	AbandonedAfter     time.Duration `envconfig:"ORDERDESK_CHECKOUT_ABANDONED_AFTER" default:"30m"`
	OrderNumberPrefix  string        `envconfig:"ORDERDESK_ORDER_NUMBER_PREFIX" default:"OD"`
	IdempotencyTTL     time.Duration `envconfig:"ORDERDESK_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	SessionMaxCartRows int           `envconfig:"ORDERDESK_CHECKOUT_MAX_CART_ROWS" default:"100"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"ORDERDESK_CRON_INTERVAL" default:"15m"`
	CourierPollBatch  int           `envconfig:"ORDERDESK_CRON_COURIER_POLL_BATCH" default:"100"`
	CourierPollPerSec float64       `envconfig:"ORDERDESK_CRON_COURIER_POLL_RPS" default:"2"`
	CourierPollStale  time.Duration `envconfig:"ORDERDESK_CRON_COURIER_POLL_STALE_AFTER" default:"1h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:orderdesk.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
