package config

import (
	"fmt"

	pkgconfig "github.com/mugworks/checkout/pkg/config"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CHECKOUT_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"checkout"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"checkout_secret"`
	PostgresDB   string `env:"CHECKOUT_DB_NAME" envDefault:"checkout_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (backs the distributed rate limiter; optional)
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// When enabled the service also consumes payment outcome events from
	// Kafka in addition to the webhook endpoint.
	PaymentEventsEnabled bool `env:"PAYMENT_EVENTS_ENABLED" envDefault:"false"`

	// Payment provider. Provider "mock" needs no key and is the development
	// default; "stripe" requires STRIPE_API_KEY.
	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	StripeAPIKey    string `env:"STRIPE_API_KEY" envDefault:""`
	StripeBaseURL   string `env:"STRIPE_BASE_URL" envDefault:""`
	WebhookSecret   string `env:"PAYMENT_WEBHOOK_SECRET" envDefault:""`

	// Circuit breaker settings for payment provider calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Per-step saga timeouts (seconds). Each checkout step gets its own
	// context.WithTimeout so a slow dependency cannot stall the whole
	// request indefinitely.
	SagaReservationTimeout int `env:"SAGA_RESERVATION_TIMEOUT" envDefault:"5"`
	SagaPaymentTimeout     int `env:"SAGA_PAYMENT_TIMEOUT" envDefault:"10"`
	SagaOrderTimeout       int `env:"SAGA_ORDER_TIMEOUT" envDefault:"5"`

	// Reservations and idempotency
	ReservationTTLMinutes  int `env:"RESERVATION_TTL_MINUTES" envDefault:"15"`
	IdempotencyTTLHours    int `env:"IDEMPOTENCY_TTL_HOURS" envDefault:"24"`
	CleanupIntervalMinutes int `env:"CLEANUP_INTERVAL_MINUTES" envDefault:"5"`

	// Rate limiting for checkout endpoints (per client IP)
	RateLimitRequests      int `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	RateLimitWindowMinutes int `env:"RATE_LIMIT_WINDOW_MINUTES" envDefault:"5"`

	// Pricing (minor currency units)
	StandardShippingAmount int64 `env:"STANDARD_SHIPPING_AMOUNT" envDefault:"490"`
	ExpressShippingAmount  int64 `env:"EXPRESS_SHIPPING_AMOUNT" envDefault:"990"`
	FreeShippingThreshold  int64 `env:"FREE_SHIPPING_THRESHOLD" envDefault:"4900"`
	MinChargeAmount        int64 `env:"MIN_CHARGE_AMOUNT" envDefault:"50"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	switch c.PaymentProvider {
	case "mock":
	case "stripe":
		if c.StripeAPIKey == "" {
			return fmt.Errorf("STRIPE_API_KEY is required when PAYMENT_PROVIDER is stripe")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.ReservationTTLMinutes < 1 {
		return fmt.Errorf("RESERVATION_TTL_MINUTES must be at least 1, got %d", c.ReservationTTLMinutes)
	}
	if c.IdempotencyTTLHours < 1 {
		return fmt.Errorf("IDEMPOTENCY_TTL_HOURS must be at least 1, got %d", c.IdempotencyTTLHours)
	}
	if c.RateLimitRequests < 1 || c.RateLimitWindowMinutes < 1 {
		return fmt.Errorf("rate limit requires at least 1 request per window, got %d/%dm",
			c.RateLimitRequests, c.RateLimitWindowMinutes)
	}
	if c.MinChargeAmount < 0 {
		return fmt.Errorf("MIN_CHARGE_AMOUNT cannot be negative, got %d", c.MinChargeAmount)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
