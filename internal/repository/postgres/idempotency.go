package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/pkg/database"
)

// IdempotencyRepository persists cached idempotent responses using PostgreSQL.
// Lookup and store both go through SQL functions so expiry is evaluated with
// the store's clock, not each replica's.
type IdempotencyRepository struct {
	pool database.DBTX
}

// NewIdempotencyRepository creates a new PostgreSQL-backed idempotency repository.
func NewIdempotencyRepository(pool database.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get calls get_idempotent_response. An absent key and an expired record both
// return (nil, nil): expiry means the next execution proceeds fresh.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT response_data, status_code, is_expired FROM get_idempotent_response($1)`

	ctx, end := database.TraceQuery(ctx, "procedure:get_idempotent_response", query)
	var (
		responseData json.RawMessage
		statusCode   int
		isExpired    bool
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&responseData, &statusCode, &isExpired)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotent response: %w", err)
	}

	if isExpired {
		return nil, nil
	}

	return &domain.IdempotencyRecord{
		Key:          key,
		ResponseData: responseData,
		StatusCode:   statusCode,
	}, nil
}

// Store calls store_idempotent_response, which inserts the record or
// overwrites an expired one for the same key.
func (r *IdempotencyRepository) Store(ctx context.Context, key, requestPath string, requestBody, responseData json.RawMessage, statusCode, ttlHours int) error {
	if err := database.ExecProcedure(ctx, r.pool, "store_idempotent_response", nil,
		key, requestPath, requestBody, responseData, statusCode, ttlHours); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// DeleteExpired removes records past their expiry.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int, error) {
	query := `DELETE FROM idempotency_keys WHERE expires_at < NOW()`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
