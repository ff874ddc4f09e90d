package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/provider"
	"github.com/mugworks/checkout/internal/service"
	apperrors "github.com/mugworks/checkout/pkg/errors"
	"github.com/mugworks/checkout/pkg/health"
	"github.com/mugworks/checkout/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) CreateReservation(ctx context.Context, variantID string, quantity int, checkoutID string, userID *string, ttlMinutes int) (*domain.StockReservation, error) {
	args := m.Called(ctx, variantID, quantity, checkoutID, userID, ttlMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockReservation), args.Error(1)
}

func (m *mockReservationRepository) ConfirmByCheckoutID(ctx context.Context, checkoutID string) (int, error) {
	args := m.Called(ctx, checkoutID)
	return args.Int(0), args.Error(1)
}

func (m *mockReservationRepository) ReleaseByCheckoutID(ctx context.Context, checkoutID string) (int, error) {
	args := m.Called(ctx, checkoutID)
	return args.Int(0), args.Error(1)
}

func (m *mockReservationRepository) GetByCheckoutID(ctx context.Context, checkoutID string) ([]domain.StockReservation, error) {
	args := m.Called(ctx, checkoutID)
	return args.Get(0).([]domain.StockReservation), args.Error(1)
}

func (m *mockReservationRepository) GetAvailableStock(ctx context.Context, variantID string) (int, error) {
	args := m.Called(ctx, variantID)
	return args.Int(0), args.Error(1)
}

func (m *mockReservationRepository) CleanupExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) GetVariants(ctx context.Context, variantIDs []string) ([]domain.ProductVariant, error) {
	args := m.Called(ctx, variantIDs)
	return args.Get(0).([]domain.ProductVariant), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	args := m.Called(ctx, order, items)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdatePaymentStatus(ctx context.Context, paymentIntentID, status string) error {
	args := m.Called(ctx, paymentIntentID, status)
	return args.Error(0)
}

type mockIdempotencyRepository struct {
	mock.Mock
}

func (m *mockIdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyRecord), args.Error(1)
}

func (m *mockIdempotencyRepository) Store(ctx context.Context, key, requestPath string, requestBody, responseData json.RawMessage, statusCode, ttlHours int) error {
	args := m.Called(ctx, key, requestPath, requestBody, responseData, statusCode, ttlHours)
	return args.Error(0)
}

func (m *mockIdempotencyRepository) DeleteExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockPaymentProvider struct {
	mock.Mock
}

func (m *mockPaymentProvider) Name() string { return "mock" }

func (m *mockPaymentProvider) CreateIntent(ctx context.Context, input *provider.CreateIntentInput) (*provider.IntentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.IntentResult), args.Error(1)
}

func (m *mockPaymentProvider) CancelIntent(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

// noopEvents drops all events; webhook and reservation flows don't assert on
// publishing here.
type noopEvents struct{}

func (noopEvents) PublishReservationsCreated(context.Context, string, []domain.StockReservation) error {
	return nil
}
func (noopEvents) PublishReservationsConfirmed(context.Context, string, int) error { return nil }
func (noopEvents) PublishReservationsReleased(context.Context, string, int, string) error {
	return nil
}
func (noopEvents) PublishPaymentIntentCreated(context.Context, *domain.PaymentIntentResult) error {
	return nil
}
func (noopEvents) PublishOrderCreated(context.Context, *domain.Order) error { return nil }

// ============================================================================
// Test Setup
// ============================================================================

const (
	variantA   = "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	variantB   = "1b671a64-40d5-491e-99b0-da01ff1f3341"
	checkoutID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

type handlerMocks struct {
	reservationRepo *mockReservationRepository
	catalogRepo     *mockCatalogRepository
	orderRepo       *mockOrderRepository
	idempotencyRepo *mockIdempotencyRepository
	provider        *mockPaymentProvider
}

var testPricing = domain.PricingRules{
	StandardShippingAmount: 490,
	ExpressShippingAmount:  990,
	FreeShippingThreshold:  4900,
	MinChargeAmount:        50,
}

func newTestRouter(t *testing.T, cfg RouterConfig) (http.Handler, *handlerMocks) {
	t.Helper()

	m := &handlerMocks{
		reservationRepo: new(mockReservationRepository),
		catalogRepo:     new(mockCatalogRepository),
		orderRepo:       new(mockOrderRepository),
		idempotencyRepo: new(mockIdempotencyRepository),
		provider:        new(mockPaymentProvider),
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reservationSvc := service.NewReservationService(m.reservationRepo, noopEvents{}, logger, 15)
	idempotencySvc := service.NewIdempotencyService(m.idempotencyRepo, logger, 24)
	checkoutSvc := service.NewCheckoutService(
		m.catalogRepo, m.orderRepo, reservationSvc, m.provider, noopEvents{},
		logger, testPricing, service.SagaTimeouts{},
	)

	if cfg.CORS.AllowedOrigins == nil {
		cfg.CORS = middleware.DefaultCORSConfig()
	}
	router := NewRouter(checkoutSvc, reservationSvc, idempotencySvc, health.NewHandler(), logger, cfg)
	return router, m
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func activeReservation(variantID string) *domain.StockReservation {
	return &domain.StockReservation{
		ID:         "res-1",
		VariantID:  variantID,
		Quantity:   2,
		CheckoutID: checkoutID,
		Status:     domain.ReservationStatusPending,
		ExpiresAt:  time.Now().UTC().Add(15 * time.Minute),
		CreatedAt:  time.Now().UTC(),
	}
}

func testVariant(id string, price int64) domain.ProductVariant {
	return domain.ProductVariant{
		ID:            id,
		ProductID:     "1e8f6a2c-9a34-4a3d-8a2e-52f1c4b4d911",
		Name:          "Ceramic Mug",
		SKU:           "MUG-001",
		PriceAmount:   price,
		Currency:      "EUR",
		StockQuantity: 10,
		Active:        true,
	}
}

// ============================================================================
// Reserve / Release Tests
// ============================================================================

func TestReserveStock_Success(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 2, checkoutID, (*string)(nil), 15).
		Return(activeReservation(variantA), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", map[string]any{
		"checkout_id": checkoutID,
		"items":       []map[string]any{{"variant_id": variantA, "quantity": 2}},
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			CheckoutID   string                    `json:"checkout_id"`
			Reservations []domain.StockReservation `json:"reservations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, checkoutID, resp.Data.CheckoutID)
	require.Len(t, resp.Data.Reservations, 1)
	assert.Equal(t, variantA, resp.Data.Reservations[0].VariantID)

	m.reservationRepo.AssertExpectations(t)
}

func TestReserveStock_GeneratesCheckoutID(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 1, mock.AnythingOfType("string"), (*string)(nil), 15).
		Return(activeReservation(variantA), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", map[string]any{
		"items": []map[string]any{{"variant_id": variantA, "quantity": 1}},
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			CheckoutID string `json:"checkout_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.CheckoutID)
}

func TestReserveStock_InsufficientStock(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 5, checkoutID, (*string)(nil), 15).
		Return(nil, &domain.InsufficientStockError{VariantID: variantA, Requested: 5, Available: 2})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", map[string]any{
		"checkout_id": checkoutID,
		"items":       []map[string]any{{"variant_id": variantA, "quantity": 5}},
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
	assert.Contains(t, rec.Body.String(), "Available: 2")
}

func TestReserveStock_ValidationError(t *testing.T) {
	router, _ := newTestRouter(t, RouterConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", map[string]any{
		"items": []map[string]any{{"variant_id": "not-a-uuid", "quantity": 1}},
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestReleaseCheckout(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("ReleaseByCheckoutID", mock.Anything, checkoutID).Return(2, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/"+checkoutID+"/release", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Released int `json:"released"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Released)
}

func TestReleaseCheckout_InvalidID(t *testing.T) {
	router, _ := newTestRouter(t, RouterConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/not-a-uuid/release", nil, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PARAMETER")
}

// ============================================================================
// Payment Intent Tests
// ============================================================================

func paymentIntentBody() map[string]any {
	return map[string]any{
		"items":           []map[string]any{{"variant_id": variantA, "quantity": 2}},
		"shipping_method": "standard",
	}
}

func TestCreatePaymentIntent_Success(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.idempotencyRepo.On("Get", mock.Anything, "idem-1").Return(nil, nil)
	m.catalogRepo.On("GetVariants", mock.Anything, []string{variantA}).
		Return([]domain.ProductVariant{testVariant(variantA, 1490)}, nil)
	m.reservationRepo.On("GetAvailableStock", mock.Anything, variantA).Return(10, nil)
	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 2, mock.AnythingOfType("string"), (*string)(nil), 15).
		Return(activeReservation(variantA), nil)
	m.provider.On("CreateIntent", mock.Anything, mock.MatchedBy(func(in *provider.CreateIntentInput) bool {
		// 2*1490 = 2980 subtotal + 490 standard shipping.
		return in.Amount == 3470 && in.IdempotencyKey == "idem-1"
	})).Return(&provider.IntentResult{IntentID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
	m.orderRepo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.idempotencyRepo.On("Store", mock.Anything, "idem-1", "/api/v1/checkout/payment-intent",
		mock.Anything, mock.Anything, http.StatusOK, 24).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment-intent", paymentIntentBody(),
		map[string]string{IdempotencyKeyHeader: "idem-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(ReplayHeader))

	var resp struct {
		Data domain.PaymentIntentResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_123", resp.Data.PaymentIntentID)
	assert.Equal(t, "pi_123_secret", resp.Data.ClientSecret)
	assert.Equal(t, int64(3470), resp.Data.Amount)

	m.idempotencyRepo.AssertExpectations(t)
	m.provider.AssertExpectations(t)
}

func TestCreatePaymentIntent_IdempotentReplay(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	cached := json.RawMessage(`{"data":{"checkout_id":"` + checkoutID + `","client_secret":"pi_123_secret"}}`)
	m.idempotencyRepo.On("Get", mock.Anything, "idem-1").Return(&domain.IdempotencyRecord{
		Key:          "idem-1",
		ResponseData: cached,
		StatusCode:   http.StatusOK,
		ExpiresAt:    time.Now().UTC().Add(23 * time.Hour),
	}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment-intent", paymentIntentBody(),
		map[string]string{IdempotencyKeyHeader: "idem-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(ReplayHeader))
	assert.JSONEq(t, string(cached), rec.Body.String())

	// Replay short-circuits everything downstream.
	m.catalogRepo.AssertNotCalled(t, "GetVariants")
	m.provider.AssertNotCalled(t, "CreateIntent")
	m.idempotencyRepo.AssertNotCalled(t, "Store")
}

func TestCreatePaymentIntent_CacheFailureFailsOpen(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.idempotencyRepo.On("Get", mock.Anything, "idem-1").Return(nil, assert.AnError)
	m.catalogRepo.On("GetVariants", mock.Anything, []string{variantA}).
		Return([]domain.ProductVariant{testVariant(variantA, 1490)}, nil)
	m.reservationRepo.On("GetAvailableStock", mock.Anything, variantA).Return(10, nil)
	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 2, mock.AnythingOfType("string"), (*string)(nil), 15).
		Return(activeReservation(variantA), nil)
	m.provider.On("CreateIntent", mock.Anything, mock.Anything).
		Return(&provider.IntentResult{IntentID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
	m.orderRepo.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.idempotencyRepo.On("Store", mock.Anything, "idem-1", mock.Anything, mock.Anything, mock.Anything,
		http.StatusOK, 24).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment-intent", paymentIntentBody(),
		map[string]string{IdempotencyKeyHeader: "idem-1"})

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePaymentIntent_ErrorNotCached(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.idempotencyRepo.On("Get", mock.Anything, "idem-1").Return(nil, nil)
	m.catalogRepo.On("GetVariants", mock.Anything, []string{variantA}).
		Return([]domain.ProductVariant{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment-intent", paymentIntentBody(),
		map[string]string{IdempotencyKeyHeader: "idem-1"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	m.idempotencyRepo.AssertNotCalled(t, "Store")
}

// ============================================================================
// Webhook Tests
// ============================================================================

func TestPaymentWebhook_Succeeded(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	order := &domain.Order{ID: "order-1", CheckoutID: checkoutID, PaymentIntentID: "pi_123"}
	m.orderRepo.On("GetByPaymentIntentID", mock.Anything, "pi_123").Return(order, nil)
	m.reservationRepo.On("GetByCheckoutID", mock.Anything, checkoutID).
		Return([]domain.StockReservation{*activeReservation(variantA)}, nil)
	m.reservationRepo.On("ConfirmByCheckoutID", mock.Anything, checkoutID).Return(1, nil)
	m.orderRepo.On("UpdatePaymentStatus", mock.Anything, "pi_123", domain.PaymentStatusPaid).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"type": "payment_intent.succeeded",
		"data": map[string]any{"payment_intent_id": "pi_123"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	m.orderRepo.AssertExpectations(t)
	m.reservationRepo.AssertExpectations(t)
}

func TestPaymentWebhook_Failed(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	order := &domain.Order{ID: "order-1", CheckoutID: checkoutID, PaymentIntentID: "pi_123"}
	m.orderRepo.On("GetByPaymentIntentID", mock.Anything, "pi_123").Return(order, nil)
	m.reservationRepo.On("ReleaseByCheckoutID", mock.Anything, checkoutID).Return(1, nil)
	m.orderRepo.On("UpdatePaymentStatus", mock.Anything, "pi_123", domain.PaymentStatusFailed).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"type": "payment_intent.payment_failed",
		"data": map[string]any{"payment_intent_id": "pi_123", "reason": "card_declined"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	m.reservationRepo.AssertExpectations(t)
}

func TestPaymentWebhook_UnknownTypeAcknowledged(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"type": "charge.refunded",
		"data": map[string]any{},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	m.orderRepo.AssertNotCalled(t, "GetByPaymentIntentID")
}

func TestPaymentWebhook_BadSecret(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{WebhookSecret: "whsec_test"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/webhook", map[string]any{
		"type": "payment_intent.succeeded",
		"data": map[string]any{"payment_intent_id": "pi_123"},
	}, map[string]string{"X-Webhook-Secret": "wrong"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	m.orderRepo.AssertNotCalled(t, "GetByPaymentIntentID")
}

// ============================================================================
// Stock / Cleanup Tests
// ============================================================================

func TestGetAvailableStock(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("GetAvailableStock", mock.Anything, variantA).Return(7, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/"+variantA, nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.StockAvailability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Data.Available)
}

func TestGetAvailableStock_UnknownVariant(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("GetAvailableStock", mock.Anything, variantB).
		Return(0, apperrors.NotFound("variant", variantB))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/"+variantB, nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupReservations(t *testing.T) {
	router, m := newTestRouter(t, RouterConfig{})

	m.reservationRepo.On("CleanupExpired", mock.Anything).Return(4, nil)
	m.idempotencyRepo.On("DeleteExpired", mock.Anything).Return(9, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reservations/cleanup", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reservations_expired":4`)
	assert.Contains(t, rec.Body.String(), `"idempotency_keys_deleted":9`)
}

// ============================================================================
// Rate Limit Tests
// ============================================================================

func TestCheckoutRoutes_RateLimited(t *testing.T) {
	limiter := middleware.NewFixedWindowLimiter(1, 5*time.Minute)
	router, m := newTestRouter(t, RouterConfig{RateLimiter: limiter})

	m.reservationRepo.On("CreateReservation", mock.Anything, variantA, 1, checkoutID, (*string)(nil), 15).
		Return(activeReservation(variantA), nil)

	body := map[string]any{
		"checkout_id": checkoutID,
		"items":       []map[string]any{{"variant_id": variantA, "quantity": 1}},
	}

	first := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", body, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/v1/checkout/reserve", body, nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, RouterConfig{})

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
