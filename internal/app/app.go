package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mugworks/checkout/internal/config"
	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/event"
	handler "github.com/mugworks/checkout/internal/handler/http"
	"github.com/mugworks/checkout/internal/provider"
	providermock "github.com/mugworks/checkout/internal/provider/mock"
	"github.com/mugworks/checkout/internal/provider/stripe"
	"github.com/mugworks/checkout/internal/repository/postgres"
	"github.com/mugworks/checkout/internal/service"
	"github.com/mugworks/checkout/migrations"
	"github.com/mugworks/checkout/pkg/database"
	"github.com/mugworks/checkout/pkg/health"
	"github.com/mugworks/checkout/pkg/httpclient"
	pkgkafka "github.com/mugworks/checkout/pkg/kafka"
	"github.com/mugworks/checkout/pkg/middleware"
	"github.com/mugworks/checkout/pkg/tracing"
)

// App wires together all dependencies and runs the checkout service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	redisClient    *redis.Client
	reservations   *service.ReservationService
	idempotency    *service.IdempotencyService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "checkout",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "checkout")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Optional Redis client. When enabled it backs the distributed rate
	// limiter so the per-IP window holds across replicas.
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisCfg, err := redisConfigFromAddr(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("parse redis address: %w", err)
		}
		redisClient, err = database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Build the dependency graph.
	reservationRepo := postgres.NewReservationRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	paymentProvider, err := buildPaymentProvider(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("payment provider initialized", slog.String("provider", paymentProvider.Name()))

	pricing := domainPricing(cfg)

	reservationService := service.NewReservationService(reservationRepo, eventProducer, logger, cfg.ReservationTTLMinutes)
	idempotencyService := service.NewIdempotencyService(idempotencyRepo, logger, cfg.IdempotencyTTLHours)
	checkoutService := service.NewCheckoutService(
		catalogRepo,
		orderRepo,
		reservationService,
		paymentProvider,
		eventProducer,
		logger,
		pricing,
		service.SagaTimeouts{
			ReservationTimeout: time.Duration(cfg.SagaReservationTimeout) * time.Second,
			PaymentTimeout:     time.Duration(cfg.SagaPaymentTimeout) * time.Second,
			OrderTimeout:       time.Duration(cfg.SagaOrderTimeout) * time.Second,
		},
	)

	// Optional Kafka consumers for payment outcome events. They mirror the
	// webhook endpoint; handlers are deduplicated by event id so replays
	// across both channels are harmless.
	var consumers []*pkgkafka.Consumer
	if cfg.PaymentEventsEnabled {
		eventConsumer := event.NewConsumer(checkoutService, logger)
		idempotencyStore := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)

		consumers = append(consumers,
			pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:   cfg.KafkaBrokers,
				GroupID:   "checkout-service-payment-succeeded",
				Topic:     event.TopicPaymentSucceeded,
				MinBytes:  1,
				MaxBytes:  10e6,
				EnableDLQ: true,
			}, pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.HandlePaymentSucceeded, logger), logger),
			pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:   cfg.KafkaBrokers,
				GroupID:   "checkout-service-payment-failed",
				Topic:     event.TopicPaymentFailed,
				MinBytes:  1,
				MaxBytes:  10e6,
				EnableDLQ: true,
			}, pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.HandlePaymentFailed, logger), logger),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// Rate limiter for the checkout endpoints.
	window := time.Duration(cfg.RateLimitWindowMinutes) * time.Minute
	var limiter middleware.RateLimiter
	if redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRequests, window)
	} else {
		limiter = middleware.NewFixedWindowLimiter(cfg.RateLimitRequests, window)
	}

	// HTTP router.
	router := handler.NewRouter(checkoutService, reservationService, idempotencyService, healthHandler, logger, handler.RouterConfig{
		CORS:              middleware.DefaultCORSConfig(),
		RateLimiter:       limiter,
		WebhookSecret:     cfg.WebhookSecret,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		consumers:      consumers,
		redisClient:    redisClient,
		reservations:   reservationService,
		idempotency:    idempotencyService,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// buildPaymentProvider selects the payment backend. Stripe calls go through
// the retrying HTTP client wrapped in a circuit breaker whose open-state
// fallback surfaces a retryable service-unavailable error.
func buildPaymentProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.PaymentProvider {
	case "mock":
		return providermock.NewProvider(), nil
	case "stripe":
		baseClient := httpclient.New(httpclient.Config{
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			RetryWaitMin:    500 * time.Millisecond,
			RetryWaitMax:    5 * time.Second,
			MaxConnsPerHost: 100,
		})

		cbCfg := httpclient.CircuitBreakerConfig{
			Name:         "checkout-stripe",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
		cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
			WithFallback(service.CircuitOpenFallback)
		logger.Info("circuit breaker initialized",
			slog.String("name", cbCfg.Name),
			slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
			slog.Int("timeout_seconds", cfg.CBTimeout),
			slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
		)

		return stripe.New(cbClient, stripe.Config{
			APIKey:  cfg.StripeAPIKey,
			BaseURL: cfg.StripeBaseURL,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

func domainPricing(cfg *config.Config) domain.PricingRules {
	return domain.PricingRules{
		StandardShippingAmount: cfg.StandardShippingAmount,
		ExpressShippingAmount:  cfg.ExpressShippingAmount,
		FreeShippingThreshold:  cfg.FreeShippingThreshold,
		MinChargeAmount:        cfg.MinChargeAmount,
	}
}

func redisConfigFromAddr(addr, password string, db int) (database.RedisConfig, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return database.RedisConfig{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return database.RedisConfig{}, fmt.Errorf("invalid redis port %q: %w", portStr, err)
	}
	return database.RedisConfig{Host: host, Port: port, Password: password, DB: db}, nil
}

// Run starts the HTTP server and the cleanup sweeper and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.runCleanupSweeper(sweepCtx)

	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, consumer := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}(consumer)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runCleanupSweeper periodically expires lapsed stock holds and deletes
// stale idempotency keys. Each sweep is also reachable on demand via the
// cleanup endpoint.
func (a *App) runCleanupSweeper(ctx context.Context) {
	interval := time.Duration(a.cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)

			expired, err := a.reservations.CleanupExpiredReservations(sweepCtx)
			if err != nil {
				a.logger.ErrorContext(sweepCtx, "reservation cleanup sweep failed",
					slog.String("error", err.Error()),
				)
			} else if expired > 0 {
				a.logger.InfoContext(sweepCtx, "expired lapsed reservations",
					slog.Int("count", expired),
				)
			}

			deleted, err := a.idempotency.CleanupExpired(sweepCtx)
			if err != nil {
				a.logger.ErrorContext(sweepCtx, "idempotency cleanup sweep failed",
					slog.String("error", err.Error()),
				)
			} else if deleted > 0 {
				a.logger.InfoContext(sweepCtx, "deleted expired idempotency keys",
					slog.Int("count", deleted),
				)
			}

			cancel()
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumers.
	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis client.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
