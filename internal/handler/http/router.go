package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mugworks/checkout/internal/service"
	"github.com/mugworks/checkout/pkg/health"
	"github.com/mugworks/checkout/pkg/middleware"
)

// RouterConfig holds the router's middleware settings.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	RateLimiter       middleware.RateLimiter
	WebhookSecret     string
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all checkout service routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	reservationService *service.ReservationService,
	idempotencyService *service.IdempotencyService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing("checkout"))
	r.Use(middleware.PrometheusMetrics("checkout"))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	handler := NewCheckoutHandler(checkoutService, reservationService, idempotencyService, logger, cfg.WebhookSecret)

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter, logger))
		}

		r.Post("/reserve", handler.ReserveStock)
		r.With(Idempotency(idempotencyService, logger)).Post("/payment-intent", handler.CreatePaymentIntent)
		r.Post("/{checkoutID}/release", handler.ReleaseCheckout)
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/webhook", handler.PaymentWebhook)
	})

	r.Get("/api/v1/stock/{variantID}", handler.GetAvailableStock)
	r.Post("/api/v1/reservations/cleanup", handler.CleanupReservations)

	return r
}
