package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mugworks/checkout/internal/service"
	"github.com/mugworks/checkout/pkg/httputil"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// IdempotencyKeyHeader is the client-supplied deduplication key. ReplayHeader
// marks a response served from the idempotency cache rather than executed.
const (
	IdempotencyKeyHeader = "X-Idempotency-Key"
	ReplayHeader         = "X-Idempotent-Replay"
)

type idempotencyKeyContextKey struct{}

// IdempotencyKeyFromContext returns the key the Idempotency middleware
// resolved for this request, or "" when the middleware is not mounted.
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyContextKey{}).(string)
	return key
}

// responseRecorder tees the response so a successful body can be cached.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency deduplicates retried requests. A known key replays the cached
// response verbatim with ReplayHeader set; an unknown key lets the request
// execute and caches the response afterwards if it succeeded. Only 2xx
// responses are cached so a failed attempt re-executes fully on retry.
// When the client sends no key, one is derived from the caller and payload so
// the response is still cached under a traceable key; the derived key embeds
// the request time, so retries without the header do not deduplicate. Clients
// that need replay protection must send X-Idempotency-Key.
func Idempotency(idempotency *service.IdempotencyService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
			if err != nil {
				httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to read request body: " + err.Error()},
				})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				key = service.GenerateKey(r.Header.Get("X-User-ID"), body)
			}

			check, err := idempotency.Check(r.Context(), key)
			if err != nil {
				// Fail open: a broken cache must not block checkouts. The
				// downstream provider still deduplicates on the same key.
				logger.ErrorContext(r.Context(), "idempotency check failed, executing request",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			} else if check.IsDuplicate {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(ReplayHeader, "true")
				w.WriteHeader(check.StatusCode)
				_, _ = w.Write(check.ResponseData)
				return
			}

			ctx := context.WithValue(r.Context(), idempotencyKeyContextKey{}, key)
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status >= 200 && rec.status < 300 {
				if err := idempotency.Store(ctx, key, r.URL.Path, body, json.RawMessage(rec.body.Bytes()), rec.status); err != nil {
					logger.ErrorContext(ctx, "failed to cache idempotent response",
						slog.String("key", key),
						slog.String("error", err.Error()),
					)
				}
			}
		})
	}
}
