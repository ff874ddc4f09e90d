package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/pkg/database"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

const insufficientStockPrefix = "Insufficient stock. Available: "

// ReservationRepository implements reservation persistence using PostgreSQL.
// All mutating operations delegate to server-side SQL functions so that
// check-then-insert and status transitions execute atomically at the store.
type ReservationRepository struct {
	pool database.DBTX
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool database.DBTX) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// CreateReservation calls create_stock_reservation, which checks available
// stock and inserts the pending row in one atomic statement. The function
// raises "Insufficient stock. Available: N" when the check fails; that error
// is translated into domain.InsufficientStockError.
func (r *ReservationRepository) CreateReservation(ctx context.Context, variantID string, quantity int, checkoutID string, userID *string, ttlMinutes int) (*domain.StockReservation, error) {
	query := `
		SELECT id, variant_id, quantity, checkout_id, user_id, status, expires_at, created_at
		FROM create_stock_reservation($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "procedure:create_stock_reservation", query)
	var res domain.StockReservation
	err := r.pool.QueryRow(ctx, query, variantID, quantity, checkoutID, userID, ttlMinutes).Scan(
		&res.ID,
		&res.VariantID,
		&res.Quantity,
		&res.CheckoutID,
		&res.UserID,
		&res.Status,
		&res.ExpiresAt,
		&res.CreatedAt,
	)
	end(err)
	if err != nil {
		if stockErr := parseInsufficientStock(err, variantID, quantity); stockErr != nil {
			return nil, stockErr
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	return &res, nil
}

// ConfirmByCheckoutID calls confirm_stock_reservation, which marks every
// pending reservation for the checkout as confirmed and decrements variant
// stock in the same statement.
func (r *ReservationRepository) ConfirmByCheckoutID(ctx context.Context, checkoutID string) (int, error) {
	var count int
	if err := database.ExecProcedure(ctx, r.pool, "confirm_stock_reservation", &count, checkoutID); err != nil {
		return 0, fmt.Errorf("confirm reservations for checkout %s: %w", checkoutID, err)
	}
	return count, nil
}

// ReleaseByCheckoutID calls release_stock_reservation. Pending rows move to
// cancelled; rows already cancelled, confirmed or expired are skipped, which
// makes the call safe to repeat.
func (r *ReservationRepository) ReleaseByCheckoutID(ctx context.Context, checkoutID string) (int, error) {
	var count int
	if err := database.ExecProcedure(ctx, r.pool, "release_stock_reservation", &count, checkoutID); err != nil {
		return 0, fmt.Errorf("release reservations for checkout %s: %w", checkoutID, err)
	}
	return count, nil
}

// GetByCheckoutID retrieves all reservations for a checkout attempt.
func (r *ReservationRepository) GetByCheckoutID(ctx context.Context, checkoutID string) ([]domain.StockReservation, error) {
	query := `
		SELECT id, variant_id, quantity, checkout_id, user_id, status, expires_at, created_at
		FROM stock_reservations
		WHERE checkout_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("get reservations by checkout id: %w", err)
	}
	defer rows.Close()

	var reservations []domain.StockReservation
	for rows.Next() {
		var res domain.StockReservation
		if err := rows.Scan(
			&res.ID,
			&res.VariantID,
			&res.Quantity,
			&res.CheckoutID,
			&res.UserID,
			&res.Status,
			&res.ExpiresAt,
			&res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}

	if reservations == nil {
		reservations = []domain.StockReservation{}
	}

	return reservations, nil
}

// GetAvailableStock calls get_available_stock: stock_quantity minus pending,
// unexpired reservations for the variant.
func (r *ReservationRepository) GetAvailableStock(ctx context.Context, variantID string) (int, error) {
	var available *int
	if err := database.ExecProcedure(ctx, r.pool, "get_available_stock", &available, variantID); err != nil {
		return 0, fmt.Errorf("get available stock for variant %s: %w", variantID, err)
	}
	if available == nil {
		return 0, apperrors.NotFound("variant", variantID)
	}
	return *available, nil
}

// CleanupExpired calls cleanup_expired_reservations, which marks pending rows
// past their expiry as expired and skips rows already transitioned, so
// concurrent sweeps converge on the same end state.
func (r *ReservationRepository) CleanupExpired(ctx context.Context) (int, error) {
	var count int
	if err := database.ExecProcedure(ctx, r.pool, "cleanup_expired_reservations", &count); err != nil {
		return 0, fmt.Errorf("cleanup expired reservations: %w", err)
	}
	return count, nil
}

// parseInsufficientStock recognizes the business error raised by
// create_stock_reservation and extracts the available unit count from its
// message.
func parseInsufficientStock(err error, variantID string, requested int) *domain.InsufficientStockError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	if !strings.HasPrefix(pgErr.Message, insufficientStockPrefix) {
		return nil
	}

	available, convErr := strconv.Atoi(strings.TrimPrefix(pgErr.Message, insufficientStockPrefix))
	if convErr != nil {
		available = 0
	}

	return &domain.InsufficientStockError{
		VariantID: variantID,
		Requested: requested,
		Available: available,
	}
}
