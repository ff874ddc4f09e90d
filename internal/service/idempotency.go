package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/repository"
	"github.com/mugworks/checkout/pkg/database"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// IdempotencyService deduplicates retried client requests by caching the
// first successful response under a client-supplied key.
type IdempotencyService struct {
	records    repository.IdempotencyRepository
	logger     *slog.Logger
	ttlHours   int
	maxRetries int
	retryDelay time.Duration
}

// NewIdempotencyService creates a new idempotency service. ttlHours <= 0
// falls back to the default cache TTL.
func NewIdempotencyService(records repository.IdempotencyRepository, logger *slog.Logger, ttlHours int) *IdempotencyService {
	if ttlHours <= 0 {
		ttlHours = domain.DefaultIdempotencyTTLHours
	}
	return &IdempotencyService{
		records:    records,
		logger:     logger,
		ttlHours:   ttlHours,
		maxRetries: database.DefaultMaxRetries,
		retryDelay: database.DefaultRetryBaseDelay,
	}
}

// Check looks up a key. A hit returns the cached response verbatim; an absent
// or expired key means the handler must execute fresh.
func (s *IdempotencyService) Check(ctx context.Context, key string) (*domain.IdempotencyCheck, error) {
	if key == "" {
		return nil, apperrors.InvalidInput("idempotency key is required")
	}

	var record *domain.IdempotencyRecord
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.records.Get(ctx, key)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("check idempotency key: %w", err)
	}

	if record == nil {
		return &domain.IdempotencyCheck{IsDuplicate: false}, nil
	}

	s.logger.InfoContext(ctx, "idempotent replay",
		slog.String("key", key),
		slog.Int("status_code", record.StatusCode),
	)

	return &domain.IdempotencyCheck{
		IsDuplicate:  true,
		ResponseData: record.ResponseData,
		StatusCode:   record.StatusCode,
	}, nil
}

// Store caches a response under the key. Callers must only invoke this for
// 2xx responses; non-2xx status codes are rejected so a failed attempt can be
// retried under the same key and re-execute fully.
func (s *IdempotencyService) Store(ctx context.Context, key, requestPath string, requestBody, responseData json.RawMessage, statusCode int) error {
	if key == "" {
		return apperrors.InvalidInput("idempotency key is required")
	}
	if statusCode < 200 || statusCode >= 300 {
		return apperrors.InvalidInput(fmt.Sprintf("refusing to cache non-2xx response (status %d)", statusCode))
	}

	err := database.Retry(ctx, func(ctx context.Context) error {
		return s.records.Store(ctx, key, requestPath, requestBody, responseData, statusCode, s.ttlHours)
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}

	return nil
}

// CleanupExpired removes cached responses past their TTL.
func (s *IdempotencyService) CleanupExpired(ctx context.Context) (int, error) {
	var count int
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.records.DeleteExpired(ctx)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired idempotency keys: %w", err)
	}
	return count, nil
}

// GenerateKey builds a server-side idempotency key for clients that cannot
// supply one: actor id, timestamp, and a SHA-256 digest of the payload. The
// cryptographic hash keeps two different payloads from colliding on a key,
// which would incorrectly short-circuit one of them.
func GenerateKey(actor string, payload []byte) string {
	if actor == "" {
		actor = "anon"
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s-%d-%s", actor, time.Now().UTC().UnixMilli(), hex.EncodeToString(sum[:]))
}
