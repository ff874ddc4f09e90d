package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mugworks/checkout/pkg/logger"
)

const (
	// DefaultMaxRetries is the number of additional attempts after the first failure.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the backoff base; attempt n waits base * 2^n.
	DefaultRetryBaseDelay = 100 * time.Millisecond
)

// Transient SQLSTATE codes: serialization failure, deadlock, admin shutdown.
// Class 08 (connection exception) is matched by prefix below.
var transientSQLStates = map[string]struct{}{
	"40001": {},
	"40P01": {},
	"57P01": {},
}

// IsTransient classifies an error as a transient infrastructure failure that is
// worth retrying. Business errors (not-found, constraint violations) and context
// cancellation are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		_, ok := transientSQLStates[pgErr.Code]
		return ok
	}

	return isConnectionError(err)
}

// Retry executes op, retrying transient failures with exponential backoff
// (baseDelay, 2*baseDelay, 4*baseDelay, ...). Non-transient errors propagate
// immediately. After maxRetries additional attempts the last error is returned.
func Retry(ctx context.Context, op func(ctx context.Context) error, maxRetries int, baseDelay time.Duration) error {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := baseDelay * time.Duration(1<<uint(attempt-1))
			log.WarnContext(ctx, "retrying database operation",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
}

// WithTransaction provides structured logging around callback execution. It is
// NOT a true transaction: the store's atomic operations live in server-side SQL
// functions, each invoked as a single statement, so there is nothing to roll
// back here. Callers that need atomicity must call one of those functions via
// ExecProcedure instead of composing statements inside the callback.
func WithTransaction(ctx context.Context, name string, callback func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	log.DebugContext(ctx, "transaction scope start", slog.String("name", name))

	err := callback(ctx)
	if err != nil {
		log.ErrorContext(ctx, "transaction scope failed",
			slog.String("name", name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return err
	}

	log.DebugContext(ctx, "transaction scope end",
		slog.String("name", name),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// ExecProcedure invokes a server-side SQL function as a single statement and
// scans its result into dest. Pass nil dest for functions returning void.
func ExecProcedure(ctx context.Context, db DBTX, name string, dest any, args ...any) error {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("SELECT %s(%s)", name, strings.Join(placeholders, ", "))

	ctx, end := TraceQuery(ctx, "procedure:"+name, query)
	var err error
	if dest == nil {
		_, err = db.Exec(ctx, query, args...)
	} else {
		err = db.QueryRow(ctx, query, args...).Scan(dest)
	}
	end(err)
	if err != nil {
		return fmt.Errorf("exec procedure %s: %w", name, err)
	}
	return nil
}

// BatchInsert splits records into fixed-size chunks and executes one multi-row
// INSERT per chunk. A failing chunk aborts the remaining chunks; chunks already
// inserted are not rolled back, which callers must account for.
func BatchInsert(ctx context.Context, db DBTX, table string, columns []string, records [][]any, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		query, args := buildInsert(table, columns, chunk)
		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("batch insert into %s (rows %d-%d): %w", table, start, end-1, err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*len(columns))

	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, row[j])
			sb.WriteString(fmt.Sprintf("$%d", len(args)))
		}
		sb.WriteString(")")
	}

	return sb.String(), args
}
