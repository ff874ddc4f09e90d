package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// RateLimiter decides whether a request identified by key may proceed.
// When the request is rejected, retryAfter reports how long until the
// current window resets.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// window tracks request counts for one client within the current fixed window.
type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter is an in-memory fixed-window rate limiter keyed by
// client identifier. Counts reset when a window elapses; the earliest
// moment a rejected client may retry is the end of its current window.
type FixedWindowLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	interval time.Duration
	nowFunc  func() time.Time // injectable clock for testing
}

// NewFixedWindowLimiter creates a limiter allowing limit requests per
// interval per key. It starts a background goroutine that evicts stale
// windows.
func NewFixedWindowLimiter(limit int, interval time.Duration) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		nowFunc:  time.Now,
	}
	go l.cleanupLoop()
	return l
}

// Allow counts a request against the key's current window.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.interval {
		l.windows[key] = &window{start: now, count: 1}
		return true, 0, nil
	}

	if w.count >= l.limit {
		retryAfter := l.interval - now.Sub(w.start)
		return false, retryAfter, nil
	}

	w.count++
	return true, 0, nil
}

func (l *FixedWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for range ticker.C {
		l.cleanup()
	}
}

// cleanup evicts windows that have fully elapsed.
func (l *FixedWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, key)
		}
	}
}

// len returns the number of tracked windows (used in tests).
func (l *FixedWindowLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// RedisFixedWindowLimiter implements the same fixed-window policy against
// Redis, so the limit holds across replicas. The window key is INCRed and
// given a TTL on first use; the TTL doubles as the retry-after hint.
type RedisFixedWindowLimiter struct {
	client   *redis.Client
	limit    int
	interval time.Duration
	prefix   string
}

// NewRedisFixedWindowLimiter creates a Redis-backed fixed-window limiter.
func NewRedisFixedWindowLimiter(client *redis.Client, limit int, interval time.Duration) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{
		client:   client,
		limit:    limit,
		interval: interval,
		prefix:   "ratelimit:",
	}
}

// Allow counts the request in Redis. Errors are returned to the caller, which
// decides the failure policy (the middleware fails open).
func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := l.prefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.interval)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.interval
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// RateLimit returns middleware that enforces a per-IP fixed-window limit.
// Rejected requests receive 429 with a Retry-After header (seconds, rounded
// up) and a JSON body carrying the same hint. If the limiter backend fails,
// the request is allowed through rather than blocking checkout traffic.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			allowed, retryAfter, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("ip", ip),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(retryAfter.Seconds())
				if retryAfter > time.Duration(seconds)*time.Second {
					seconds++
				}
				if seconds < 1 {
					seconds = 1
				}

				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
					slog.Int("retry_after_seconds", seconds),
				)

				appErr := apperrors.RateLimited("too many checkout attempts, please try again later")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.WriteHeader(appErr.Status)
				json.NewEncoder(w).Encode(map[string]any{
					"error":      appErr,
					"retryAfter": seconds,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP address from the request. It checks
// X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
