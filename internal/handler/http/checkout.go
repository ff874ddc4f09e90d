package http

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/service"
	"github.com/mugworks/checkout/pkg/httputil"
	"github.com/mugworks/checkout/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	checkout      *service.CheckoutService
	reservations  *service.ReservationService
	idempotency   *service.IdempotencyService
	logger        *slog.Logger
	webhookSecret string
}

// NewCheckoutHandler creates a new checkout HTTP handler. webhookSecret guards
// the payment webhook endpoint; an empty secret disables the check.
func NewCheckoutHandler(
	checkout *service.CheckoutService,
	reservations *service.ReservationService,
	idempotency *service.IdempotencyService,
	logger *slog.Logger,
	webhookSecret string,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:      checkout,
		reservations:  reservations,
		idempotency:   idempotency,
		logger:        logger,
		webhookSecret: webhookSecret,
	}
}

// --- Request DTOs ---

// ReservationItemRequest is a single cart line: variant and quantity only.
// Prices never travel with the request.
type ReservationItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// ReserveStockRequest is the JSON request body for reserving stock without
// creating a payment intent.
type ReserveStockRequest struct {
	Items      []ReservationItemRequest `json:"items" validate:"required,min=1,dive"`
	CheckoutID string                   `json:"checkout_id" validate:"omitempty,uuid"`
}

// PaymentIntentRequest is the JSON request body for creating a payment intent.
type PaymentIntentRequest struct {
	Items           []ReservationItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingMethod  string                   `json:"shipping_method" validate:"required,oneof=standard express"`
	ShippingAddress json.RawMessage          `json:"shipping_address,omitempty"`
}

// WebhookRequest is the payment provider's event notification.
type WebhookRequest struct {
	Type string `json:"type" validate:"required"`
	Data struct {
		PaymentIntentID string `json:"payment_intent_id"`
		Reason          string `json:"reason"`
	} `json:"data"`
}

func toReservationItems(items []ReservationItemRequest) []domain.ReservationItem {
	out := make([]domain.ReservationItem, len(items))
	for i, item := range items {
		out[i] = domain.ReservationItem{VariantID: item.VariantID, Quantity: item.Quantity}
	}
	return out
}

// userIDPtr extracts the optional X-User-ID header. Guest checkouts carry no
// user id.
func userIDPtr(r *http.Request) *string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return &id
	}
	return nil
}

// --- Handlers ---

// ReserveStock handles POST /api/v1/checkout/reserve
// @Summary Reserve stock for a cart
// @Description Places time-boxed holds on every cart line. All-or-nothing: a failed line releases the whole batch.
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body ReserveStockRequest true "Cart lines to reserve"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/checkout/reserve [post]
func (h *CheckoutHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	checkoutID := req.CheckoutID
	if checkoutID == "" {
		checkoutID = service.NewCheckoutID()
	}

	result, err := h.reservations.CreateBulkReservations(r.Context(), toReservationItems(req.Items), checkoutID, userIDPtr(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]any{
		"checkout_id":  checkoutID,
		"reservations": result.Reservations,
	}})
}

// CreatePaymentIntent handles POST /api/v1/checkout/payment-intent
// @Summary Create a payment intent for a cart
// @Description Recomputes the total from trusted catalog prices, holds stock, and creates a payment intent. Send X-Idempotency-Key to make retries safe.
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Idempotency-Key header string false "Client deduplication key"
// @Param request body PaymentIntentRequest true "Cart and shipping selection"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/checkout/payment-intent [post]
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	idempotencyKey := IdempotencyKeyFromContext(r.Context())
	if idempotencyKey == "" {
		idempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}

	result, err := h.checkout.CreatePaymentIntent(r.Context(), &service.PaymentIntentInput{
		Items:           toReservationItems(req.Items),
		ShippingMethod:  req.ShippingMethod,
		ShippingAddress: req.ShippingAddress,
		UserID:          userIDPtr(r),
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ReleaseCheckout handles POST /api/v1/checkout/{checkoutID}/release
// @Summary Release a checkout's holds
// @Description Returns all pending reservations for the checkout to the available pool. Idempotent.
// @Tags checkout
// @Produce json
// @Param checkoutID path string true "Checkout UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/checkout/{checkoutID}/release [post]
func (h *CheckoutHandler) ReleaseCheckout(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutID")
	if _, ok := httputil.ParseUUID(w, checkoutID); !ok {
		return
	}

	count, err := h.checkout.ReleaseCheckout(r.Context(), checkoutID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"checkout_id": checkoutID,
		"released":    count,
	}})
}

// GetAvailableStock handles GET /api/v1/stock/{variantID}
// @Summary Get available stock for a variant
// @Description Returns physical stock minus pending unexpired holds.
// @Tags stock
// @Produce json
// @Param variantID path string true "Variant UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/stock/{variantID} [get]
func (h *CheckoutHandler) GetAvailableStock(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")
	if _, ok := httputil.ParseUUID(w, variantID); !ok {
		return
	}

	available, err := h.reservations.GetAvailableStock(r.Context(), variantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: domain.StockAvailability{
		VariantID: variantID,
		Available: available,
	}})
}

// PaymentWebhook handles POST /api/v1/payments/webhook
// @Summary Payment provider webhook
// @Description Receives payment outcome events. Success confirms the checkout's holds; failure releases them.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body WebhookRequest true "Provider event"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/payments/webhook [post]
func (h *CheckoutHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid webhook secret"},
			})
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var err error
	switch req.Type {
	case "payment_intent.succeeded":
		err = h.checkout.HandlePaymentSucceeded(r.Context(), req.Data.PaymentIntentID)
	case "payment_intent.payment_failed":
		err = h.checkout.HandlePaymentFailed(r.Context(), req.Data.PaymentIntentID, req.Data.Reason)
	default:
		// Unknown event types are acknowledged so the provider stops retrying.
		h.logger.InfoContext(r.Context(), "ignoring unhandled webhook event",
			slog.String("type", req.Type),
		)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"received": true}})
}

// CleanupReservations handles POST /api/v1/reservations/cleanup
// @Summary Sweep expired reservations
// @Description Transitions pending holds past their TTL to expired. Intended for internal schedulers; the in-process sweeper calls the same operation.
// @Tags reservations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/reservations/cleanup [post]
func (h *CheckoutHandler) CleanupReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.reservations.CleanupExpiredReservations(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	keys, err := h.idempotency.CleanupExpired(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"reservations_expired":     reservations,
		"idempotency_keys_deleted": keys,
	}})
}
