package repository

import (
	"context"
	"encoding/json"

	"github.com/mugworks/checkout/internal/domain"
)

// ReservationRepository defines the persistence operations for stock
// reservations. The mutating operations map onto server-side SQL functions,
// which are the only place true atomicity exists for check-then-insert and
// status transitions.
type ReservationRepository interface {
	// CreateReservation atomically checks available stock and inserts a
	// pending reservation. Returns domain.InsufficientStockError when fewer
	// units are available than requested.
	CreateReservation(ctx context.Context, variantID string, quantity int, checkoutID string, userID *string, ttlMinutes int) (*domain.StockReservation, error)

	// ConfirmByCheckoutID marks all pending reservations for a checkout as
	// confirmed and permanently decrements variant stock. Returns the number
	// of reservations confirmed.
	ConfirmByCheckoutID(ctx context.Context, checkoutID string) (int, error)

	// ReleaseByCheckoutID cancels all pending reservations for a checkout,
	// returning their units to the available pool. Idempotent: releasing an
	// already-released checkout affects zero rows and is not an error.
	ReleaseByCheckoutID(ctx context.Context, checkoutID string) (int, error)

	// GetByCheckoutID retrieves all reservations for a checkout attempt in
	// creation order.
	GetByCheckoutID(ctx context.Context, checkoutID string) ([]domain.StockReservation, error)

	// GetAvailableStock computes stock_quantity minus the pending, unexpired
	// reservations for the variant.
	GetAvailableStock(ctx context.Context, variantID string) (int, error)

	// CleanupExpired transitions pending reservations past their expiry to
	// expired. Returns the number of rows transitioned; running it twice in
	// a row is a no-op the second time.
	CleanupExpired(ctx context.Context) (int, error)
}

// CatalogRepository reads trusted product data. Checkout never trusts
// client-submitted names or prices.
type CatalogRepository interface {
	// GetVariants retrieves active variants by id.
	GetVariants(ctx context.Context, variantIDs []string) ([]domain.ProductVariant, error)
}

// IdempotencyRepository defines the persistence operations for cached
// idempotent responses.
type IdempotencyRepository interface {
	// Get looks up a key. Expired records are reported as absent (nil, nil).
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)

	// Store caches a successful response under the key. Overwrites an
	// expired record for the same key.
	Store(ctx context.Context, key, requestPath string, requestBody, responseData json.RawMessage, statusCode, ttlHours int) error

	// DeleteExpired removes records past their expiry. Returns the number
	// of rows deleted.
	DeleteExpired(ctx context.Context) (int, error)
}

// OrderRepository defines the persistence operations for orders created after
// a payment intent exists.
type OrderRepository interface {
	// CreateOrder inserts the order row and its line items.
	CreateOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem) error

	// GetByPaymentIntentID retrieves the order keyed by the provider's
	// payment-intent id.
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error)

	// UpdatePaymentStatus transitions the order's payment status.
	UpdatePaymentStatus(ctx context.Context, paymentIntentID, status string) error
}
