package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Catalog      CatalogConfig
	Cart         CartConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	if cfg.Pricing.FlatShippingFee.IsNegative() || cfg.Pricing.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("pricing amounts must not be negative")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BOOKVERSE_APP_ENV" required:"true"`
	Port         string   `envconfig:"BOOKVERSE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BOOKVERSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BOOKVERSE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BOOKVERSE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BOOKVERSE_DB_DSN"`

	Host     string `envconfig:"BOOKVERSE_DB_HOST"`
	Port     int    `envconfig:"BOOKVERSE_DB_PORT" default:"5432"`
	User     string `envconfig:"BOOKVERSE_DB_USER"`
	Password string `envconfig:"BOOKVERSE_DB_PASSWORD"`
	Name     string `envconfig:"BOOKVERSE_DB_NAME"`
	SSLMode  string `envconfig:"BOOKVERSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKVERSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKVERSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKVERSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKVERSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// UseSQLite is copied from the feature flags during Load so the client can pick a dialector.
	UseSQLite bool `ignored:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKVERSE_REDIS_URL"`
	Address      string        `envconfig:"BOOKVERSE_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKVERSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKVERSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKVERSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKVERSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKVERSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKVERSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKVERSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"BOOKVERSE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOOKVERSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOOKVERSE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOOKVERSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOOKVERSE_AUTO_MIGRATE" default:"false"`
}

type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal `envconfig:"BOOKVERSE_PRICING_FREE_SHIPPING_THRESHOLD" default:"50"`
	FlatShippingFee       decimal.Decimal `envconfig:"BOOKVERSE_PRICING_FLAT_SHIPPING_FEE" default:"5"`
}

type CatalogConfig struct {
	FetchTimeout         time.Duration `envconfig:"BOOKVERSE_CATALOG_FETCH_TIMEOUT" default:"3s"`
	MaxConcurrentLookups int           `envconfig:"BOOKVERSE_CATALOG_MAX_CONCURRENT_LOOKUPS" default:"8"`
	SuggestionLimit      int           `envconfig:"BOOKVERSE_CATALOG_SUGGESTION_LIMIT" default:"8"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"BOOKVERSE_CART_TTL" default:"720h"`
}

type GatewayConfig struct {
	HashSecret  string        `envconfig:"BOOKVERSE_GATEWAY_HASH_SECRET"`
	SuccessCode string        `envconfig:"BOOKVERSE_GATEWAY_SUCCESS_CODE" default:"00"`
	RefundSLA   time.Duration `envconfig:"BOOKVERSE_GATEWAY_REFUND_SLA" default:"72h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BOOKVERSE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderEventsTopic string `envconfig:"BOOKVERSE_PUBSUB_ORDER_EVENTS_TOPIC" default:"bookverse-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BOOKVERSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BOOKVERSE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BOOKVERSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BOOKVERSE_CRON_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"BOOKVERSE_CRON_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	db.UseSQLite = useSQLite
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range partialDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
