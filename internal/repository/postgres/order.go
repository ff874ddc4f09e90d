package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/pkg/database"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// orderItemChunkSize bounds the multi-row INSERT built per chunk.
const orderItemChunkSize = 100

// OrderRepository persists orders and their line items using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateOrder inserts the order row, then its line items in chunks. The store
// offers no client-driven transaction here, so a line-item failure after the
// order row exists is surfaced to the caller, which logs it as a
// reconciliation risk rather than rolling back.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	query := `
		INSERT INTO orders (id, checkout_id, payment_intent_id, user_id, payment_status,
			subtotal_amount, shipping_amount, total_amount, currency, shipping_method,
			shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.CheckoutID,
		order.PaymentIntentID,
		order.UserID,
		order.PaymentStatus,
		order.SubtotalAmount,
		order.ShippingAmount,
		order.TotalAmount,
		order.Currency,
		order.ShippingMethod,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	records := make([][]any, 0, len(items))
	for _, item := range items {
		records = append(records, []any{
			item.ID,
			order.ID,
			item.VariantID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.TotalPrice,
		})
	}

	columns := []string{"id", "order_id", "variant_id", "name", "unit_price", "quantity", "total_price"}
	if _, err := database.BatchInsert(ctx, r.pool, "order_items", columns, records, orderItemChunkSize); err != nil {
		return fmt.Errorf("create order items: %w", err)
	}

	return nil
}

// GetByPaymentIntentID retrieves the order keyed by the provider's intent id.
func (r *OrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	query := `
		SELECT id, checkout_id, payment_intent_id, user_id, payment_status,
			subtotal_amount, shipping_amount, total_amount, currency, shipping_method,
			shipping_address, created_at, updated_at
		FROM orders
		WHERE payment_intent_id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, query, paymentIntentID).Scan(
		&o.ID,
		&o.CheckoutID,
		&o.PaymentIntentID,
		&o.UserID,
		&o.PaymentStatus,
		&o.SubtotalAmount,
		&o.ShippingAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.ShippingMethod,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", paymentIntentID)
		}
		return nil, fmt.Errorf("get order by payment intent id: %w", err)
	}

	return &o, nil
}

// UpdatePaymentStatus transitions the order's payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, paymentIntentID, status string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE payment_intent_id = $2`

	ct, err := r.pool.Exec(ctx, query, status, paymentIntentID)
	if err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", paymentIntentID)
	}

	return nil
}
