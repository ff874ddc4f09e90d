package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/provider"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// --- Mock CatalogRepository ---

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) GetVariants(ctx context.Context, variantIDs []string) ([]domain.ProductVariant, error) {
	args := m.Called(ctx, variantIDs)
	return args.Get(0).([]domain.ProductVariant), args.Error(1)
}

// --- Mock OrderRepository ---

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

// --- Mock ReservationManager ---

type mockReservationManager struct {
	mock.Mock
}

func (m *mockReservationManager) CreateBulkReservations(ctx context.Context, items []domain.ReservationItem, checkoutID string, userID *string) (*domain.BulkReservationResult, error) {
	args := m.Called(ctx, items, checkoutID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BulkReservationResult), args.Error(1)
}

func (m *mockReservationManager) ConfirmReservations(ctx context.Context, checkoutID string) (int, error) {
	args := m.Called(ctx, checkoutID)
	return args.Int(0), args.Error(1)
}

func (m *mockReservationManager) ReleaseReservations(ctx context.Context, checkoutID, reason string) (int, error) {
	args := m.Called(ctx, checkoutID, reason)
	return args.Int(0), args.Error(1)
}

func (m *mockReservationManager) AreReservationsValid(ctx context.Context, checkoutID string) (bool, error) {
	args := m.Called(ctx, checkoutID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReservationManager) GetAvailableStock(ctx context.Context, variantID string) (int, error) {
	args := m.Called(ctx, variantID)
	return args.Int(0), args.Error(1)
}

// --- Mock payment provider ---

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

// --- Mock CheckoutEvents ---

type mockCheckoutEvents struct {
	mock.Mock
}

func (m *mockCheckoutEvents) PublishPaymentIntentCreated(ctx context.Context, result *domain.PaymentIntentResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *mockCheckoutEvents) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// --- Test Helpers ---

type checkoutMocks struct {
	catalog      *mockCatalogRepository
	orders       *mockOrderRepository
	reservations *mockReservationManager
	provider     *mockPaymentProvider
	events       *mockCheckoutEvents
}

var testPricing = domain.PricingRules{
	StandardShippingAmount: 490,
	ExpressShippingAmount:  990,
	FreeShippingThreshold:  4900,
	MinChargeAmount:        50,
}

func newCheckoutService(t *testing.T) (*CheckoutService, *checkoutMocks) {
	t.Helper()
	m := &checkoutMocks{
		catalog:      new(mockCatalogRepository),
		orders:       new(mockOrderRepository),
		reservations: new(mockReservationManager),
		provider:     new(mockPaymentProvider),
		events:       new(mockCheckoutEvents),
	}
	svc := NewCheckoutService(m.catalog, m.orders, m.reservations, m.provider, m.events, newTestLogger(), testPricing, SagaTimeouts{})
	return svc, m
}

func sampleVariant(id string, price int64, stock int) domain.ProductVariant {
	return domain.ProductVariant{
		ID:            id,
		ProductID:     "prod-1",
		Name:          "Ceramic Mug " + id,
		SKU:           "MUG-" + id,
		PriceAmount:   price,
		Currency:      "EUR",
		StockQuantity: stock,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

// --- CreatePaymentIntent Tests ---

func TestCreatePaymentIntent_Success(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items: []domain.ReservationItem{
			{VariantID: "var-1", Quantity: 2},
			{VariantID: "var-2", Quantity: 1},
		},
		ShippingMethod: domain.ShippingMethodStandard,
		IdempotencyKey: "idem-1",
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1", "var-2"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 10),
		sampleVariant("var-2", 990, 10),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(10, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-2").Return(10, nil)
	m.reservations.On("CreateBulkReservations", mock.Anything, input.Items, mock.AnythingOfType("string"), (*string)(nil)).
		Return(&domain.BulkReservationResult{Success: true}, nil)

	// 2*1490 + 990 = 3970 subtotal, below the 4900 free-shipping threshold,
	// so standard shipping adds 490.
	m.provider.On("CreateIntent", mock.Anything, mock.MatchedBy(func(in *provider.CreateIntentInput) bool {
		return in.Amount == 4460 && in.Currency == "EUR" && in.IdempotencyKey == "idem-1"
	})).Return(&provider.IntentResult{IntentID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method"}, nil)

	m.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*domain.Order"), mock.AnythingOfType("[]domain.OrderItem")).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			items := args.Get(2).([]domain.OrderItem)
			assert.Equal(t, "pi_123", order.PaymentIntentID)
			assert.Equal(t, int64(3970), order.SubtotalAmount)
			assert.Equal(t, int64(490), order.ShippingAmount)
			assert.Equal(t, int64(4460), order.TotalAmount)
			assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
			require.Len(t, items, 2)
			assert.Equal(t, order.ID, items[0].OrderID)
			assert.Equal(t, int64(1490), items[0].UnitPrice)
			assert.Equal(t, int64(2980), items[0].TotalPrice)
		}).
		Return(nil)
	m.events.On("PublishOrderCreated", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	m.events.On("PublishPaymentIntentCreated", mock.Anything, mock.AnythingOfType("*domain.PaymentIntentResult")).Return(nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "pi_123", result.PaymentIntentID)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)
	assert.Equal(t, int64(4460), result.Amount)
	assert.Equal(t, "EUR", result.Currency)
	assert.NotEmpty(t, result.CheckoutID)

	m.catalog.AssertExpectations(t)
	m.reservations.AssertExpectations(t)
	m.provider.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

func TestCreatePaymentIntent_FreeShippingOverThreshold(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 4}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 10),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(10, nil)
	m.reservations.On("CreateBulkReservations", mock.Anything, input.Items, mock.AnythingOfType("string"), (*string)(nil)).
		Return(&domain.BulkReservationResult{Success: true}, nil)
	m.provider.On("CreateIntent", mock.Anything, mock.MatchedBy(func(in *provider.CreateIntentInput) bool {
		return in.Amount == 5960 // 4*1490, no shipping
	})).Return(&provider.IntentResult{IntentID: "pi_1", ClientSecret: "secret"}, nil)
	m.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.events.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil)
	m.events.On("PublishPaymentIntentCreated", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, int64(5960), result.Amount)
}

func TestCreatePaymentIntent_ClientPricesNeverTrusted(t *testing.T) {
	// The input carries no price fields at all; the amount comes from the
	// catalog regardless of what the cart claimed client-side.
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 1}},
		ShippingMethod: domain.ShippingMethodExpress,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 2500, 5),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(5, nil)
	m.reservations.On("CreateBulkReservations", mock.Anything, input.Items, mock.AnythingOfType("string"), (*string)(nil)).
		Return(&domain.BulkReservationResult{Success: true}, nil)
	m.provider.On("CreateIntent", mock.Anything, mock.MatchedBy(func(in *provider.CreateIntentInput) bool {
		return in.Amount == 3490 // 2500 + 990 express
	})).Return(&provider.IntentResult{IntentID: "pi_1", ClientSecret: "secret"}, nil)
	m.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.events.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil)
	m.events.On("PublishPaymentIntentCreated", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, int64(3490), result.Amount)
}

func TestCreatePaymentIntent_BelowMinimumCharge(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 1}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	// Zero shipping so the 30-cent item lands below the 50-cent minimum.
	svc.pricing = domain.PricingRules{
		StandardShippingAmount: 0,
		ExpressShippingAmount:  0,
		FreeShippingThreshold:  0,
		MinChargeAmount:        50,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 30, 10),
	}, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "minimum")

	// Rejected before any hold or provider call.
	m.reservations.AssertNotCalled(t, "CreateBulkReservations")
	m.provider.AssertNotCalled(t, "CreateIntent")
}

func TestCreatePaymentIntent_UnknownVariant(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-missing", Quantity: 1}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-missing"}).Return([]domain.ProductVariant{}, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	m.reservations.AssertNotCalled(t, "CreateBulkReservations")
	m.provider.AssertNotCalled(t, "CreateIntent")
}

func TestCreatePaymentIntent_DuplicateVariant(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items: []domain.ReservationItem{
			{VariantID: "var-1", Quantity: 1},
			{VariantID: "var-1", Quantity: 2},
		},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	m.catalog.AssertNotCalled(t, "GetVariants")
}

func TestCreatePaymentIntent_MixedCurrencies(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items: []domain.ReservationItem{
			{VariantID: "var-1", Quantity: 1},
			{VariantID: "var-2", Quantity: 1},
		},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	eur := sampleVariant("var-1", 1000, 5)
	usd := sampleVariant("var-2", 1000, 5)
	usd.Currency = "USD"
	m.catalog.On("GetVariants", ctx, []string{"var-1", "var-2"}).Return([]domain.ProductVariant{eur, usd}, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreatePaymentIntent_InsufficientStockPrecheck(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 5}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 5),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(3, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Available: 3")

	// Failed fast: no hold placed, provider never touched.
	m.reservations.AssertNotCalled(t, "CreateBulkReservations")
	m.provider.AssertNotCalled(t, "CreateIntent")
}

func TestCreatePaymentIntent_ReleasesHoldsWhenProviderFails(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 1}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 5),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(5, nil)
	m.reservations.On("CreateBulkReservations", mock.Anything, input.Items, mock.AnythingOfType("string"), (*string)(nil)).
		Return(&domain.BulkReservationResult{Success: true}, nil)
	m.provider.On("CreateIntent", mock.Anything, mock.Anything).
		Return(nil, apperrors.ServiceUnavailable("payment provider is temporarily unavailable"))
	m.reservations.On("ReleaseReservations", mock.Anything, mock.AnythingOfType("string"), "payment_intent_failed").Return(1, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	m.reservations.AssertExpectations(t)
	m.orders.AssertNotCalled(t, "CreateOrder")
}

func TestCreatePaymentIntent_OrderPersistFailureStillReturnsSecret(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 1}},
		ShippingMethod: domain.ShippingMethodStandard,
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 5),
	}, nil)
	m.reservations.On("GetAvailableStock", ctx, "var-1").Return(5, nil)
	m.reservations.On("CreateBulkReservations", mock.Anything, input.Items, mock.AnythingOfType("string"), (*string)(nil)).
		Return(&domain.BulkReservationResult{Success: true}, nil)
	m.provider.On("CreateIntent", mock.Anything, mock.Anything).
		Return(&provider.IntentResult{IntentID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
	m.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	m.events.On("PublishPaymentIntentCreated", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	// The intent exists and the charge can proceed; the missing order row is
	// a reconciliation problem, not the client's.
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)

	// Holds stay in place: the payment is still expected to complete.
	m.reservations.AssertNotCalled(t, "ReleaseReservations")
	m.events.AssertNotCalled(t, "PublishOrderCreated")
}

func TestCreatePaymentIntent_EmptyItems(t *testing.T) {
	svc, _ := newCheckoutService(t)

	result, err := svc.CreatePaymentIntent(context.Background(), &PaymentIntentInput{})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreatePaymentIntent_UnknownShippingMethod(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	input := &PaymentIntentInput{
		Items:          []domain.ReservationItem{{VariantID: "var-1", Quantity: 1}},
		ShippingMethod: "drone",
	}

	m.catalog.On("GetVariants", ctx, []string{"var-1"}).Return([]domain.ProductVariant{
		sampleVariant("var-1", 1490, 5),
	}, nil)

	result, err := svc.CreatePaymentIntent(ctx, input)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Payment outcome tests ---

func TestHandlePaymentSucceeded(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	order := &domain.Order{
		ID:              "order-1",
		CheckoutID:      "checkout-1",
		PaymentIntentID: "pi_123",
		PaymentStatus:   domain.PaymentStatusPending,
	}
	m.orders.On("GetByPaymentIntentID", ctx, "pi_123").Return(order, nil)
	m.reservations.On("AreReservationsValid", ctx, "checkout-1").Return(true, nil)
	m.reservations.On("ConfirmReservations", ctx, "checkout-1").Return(2, nil)
	m.orders.On("UpdatePaymentStatus", ctx, "pi_123", domain.PaymentStatusPaid).Return(nil)

	err := svc.HandlePaymentSucceeded(ctx, "pi_123")

	require.NoError(t, err)
	m.orders.AssertExpectations(t)
	m.reservations.AssertExpectations(t)
}

func TestHandlePaymentSucceeded_LapsedHoldsStillConfirm(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	order := &domain.Order{ID: "order-1", CheckoutID: "checkout-1", PaymentIntentID: "pi_123"}
	m.orders.On("GetByPaymentIntentID", ctx, "pi_123").Return(order, nil)
	m.reservations.On("AreReservationsValid", ctx, "checkout-1").Return(false, nil)
	m.reservations.On("ConfirmReservations", ctx, "checkout-1").Return(1, nil)
	m.orders.On("UpdatePaymentStatus", ctx, "pi_123", domain.PaymentStatusPaid).Return(nil)

	// The payment is already captured; a lapsed hold is flagged, not fatal.
	err := svc.HandlePaymentSucceeded(ctx, "pi_123")

	require.NoError(t, err)
}

func TestHandlePaymentSucceeded_SweptHoldsFlaggedForReconciliation(t *testing.T) {
	ctx := context.Background()
	m := &checkoutMocks{
		catalog:      new(mockCatalogRepository),
		orders:       new(mockOrderRepository),
		reservations: new(mockReservationManager),
		provider:     new(mockPaymentProvider),
		events:       new(mockCheckoutEvents),
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	svc := NewCheckoutService(m.catalog, m.orders, m.reservations, m.provider, m.events, logger, testPricing, SagaTimeouts{})

	order := &domain.Order{ID: "order-1", CheckoutID: "checkout-1", PaymentIntentID: "pi_123"}
	m.orders.On("GetByPaymentIntentID", ctx, "pi_123").Return(order, nil)
	m.reservations.On("AreReservationsValid", ctx, "checkout-1").Return(false, nil)
	m.reservations.On("ConfirmReservations", ctx, "checkout-1").Return(0, nil)
	m.orders.On("UpdatePaymentStatus", ctx, "pi_123", domain.PaymentStatusPaid).Return(nil)

	// Every hold was swept before the confirmation landed: the order is still
	// marked paid, but the gap is surfaced as an explicit reconciliation flag
	// rather than a generic warning.
	err := svc.HandlePaymentSucceeded(ctx, "pi_123")

	require.NoError(t, err)
	m.orders.AssertCalled(t, "UpdatePaymentStatus", ctx, "pi_123", domain.PaymentStatusPaid)
	assert.Contains(t, logs.String(), "RECONCILIATION RISK")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestHandlePaymentSucceeded_UnknownIntent(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.orders.On("GetByPaymentIntentID", ctx, "pi_unknown").Return(nil, apperrors.NotFound("order", "pi_unknown"))

	err := svc.HandlePaymentSucceeded(ctx, "pi_unknown")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	m.reservations.AssertNotCalled(t, "ConfirmReservations")
}

func TestHandlePaymentFailed(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	order := &domain.Order{ID: "order-1", CheckoutID: "checkout-1", PaymentIntentID: "pi_123"}
	m.orders.On("GetByPaymentIntentID", ctx, "pi_123").Return(order, nil)
	m.reservations.On("ReleaseReservations", ctx, "checkout-1", "payment_failed").Return(2, nil)
	m.orders.On("UpdatePaymentStatus", ctx, "pi_123", domain.PaymentStatusFailed).Return(nil)

	err := svc.HandlePaymentFailed(ctx, "pi_123", "card_declined")

	require.NoError(t, err)
	m.orders.AssertExpectations(t)
	m.reservations.AssertExpectations(t)
}

func TestReleaseCheckout(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.reservations.On("ReleaseReservations", ctx, "checkout-1", "client_released").Return(2, nil)

	count, err := svc.ReleaseCheckout(ctx, "checkout-1")

	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReleaseCheckout_EmptyID(t *testing.T) {
	svc, m := newCheckoutService(t)

	count, err := svc.ReleaseCheckout(context.Background(), "")

	assert.Zero(t, count)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	m.reservations.AssertNotCalled(t, "ReleaseReservations")
}
