package config

const (
	EnvPrefix = "ORDERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "ORDERDESK_APP_ENV"
	EnvPort      = "ORDERDESK_APP_PORT"
	EnvLogLevel  = "ORDERDESK_LOG_LEVEL"
	EnvLogFormat = "ORDERDESK_LOG_FORMAT"

	EnvDBDSN  = "ORDERDESK_DB_DSN"
	EnvDBHost = "ORDERDESK_DB_HOST"
	EnvDBUser = "ORDERDESK_DB_USER"
	EnvDBName = "ORDERDESK_DB_NAME"

	EnvRedisURL = "ORDERDESK_REDIS_URL"

	EnvJWTSecret = "ORDERDESK_JWT_SECRET"
	EnvJWTIssuer = "ORDERDESK_JWT_ISSUER"

	EnvGCPProjectID      = "ORDERDESK_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "ORDERDESK_PUBSUB_ORDERS_TOPIC"

	EnvFraudBaseURL = "ORDERDESK_FRAUD_BASE_URL"
	EnvFraudAPIKey  = "ORDERDESK_FRAUD_API_KEY"

	EnvCourierBaseURL   = "ORDERDESK_COURIER_BASE_URL"
	EnvCourierAPIKey    = "ORDERDESK_COURIER_API_KEY"
	EnvCourierSecretKey = "ORDERDESK_COURIER_SECRET_KEY"

	EnvPricingQuantityTiers = "ORDERDESK_PRICING_QUANTITY_TIERS"
	EnvRiskMinSuccessRatio  = "ORDERDESK_RISK_MIN_SUCCESS_RATIO"
	EnvRiskMaxCancelled     = "ORDERDESK_RISK_MAX_CANCELLED"
	EnvCheckoutDebounce     = "ORDERDESK_CHECKOUT_AUTOSAVE_DEBOUNCE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
