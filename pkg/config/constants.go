package config

const (
	EnvPrefix = "BOOKVERSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "BOOKVERSE_APP_ENV"
	EnvPort        = "BOOKVERSE_APP_PORT"
	EnvDBDSN       = "BOOKVERSE_DB_DSN"
	EnvDBHost      = "BOOKVERSE_DB_HOST"
	EnvDBUser      = "BOOKVERSE_DB_USER"
	EnvDBPassword  = "BOOKVERSE_DB_PASSWORD"
	EnvDBName      = "BOOKVERSE_DB_NAME"
	EnvRedisURL    = "BOOKVERSE_REDIS_URL"
	EnvJWTSecret   = "BOOKVERSE_JWT_SECRET"
	EnvJWTIssuer   = "BOOKVERSE_JWT_ISSUER"
	EnvUseSQLite   = "BOOKVERSE_USE_SQLITE"
	EnvFlatFee     = "BOOKVERSE_PRICING_FLAT_SHIPPING_FEE"
	EnvFreeShipMin = "BOOKVERSE_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvRefundSLA   = "BOOKVERSE_GATEWAY_REFUND_SLA"

	defaultSQLiteDSN = "file:bookverse.db?cache=shared"
)

var partialDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
