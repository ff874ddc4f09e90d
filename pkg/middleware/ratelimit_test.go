package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestLimiter(limit int, interval time.Duration, now func() time.Time) *FixedWindowLimiter {
	// Construct directly to avoid the cleanup goroutine and use a fake clock.
	return &FixedWindowLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		nowFunc:  now,
	}
}

func TestFixedWindowLimiter_AllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(10, 5*time.Minute, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		allowed, _, err := l.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, retryAfter, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "11th request in the window must be rejected")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 5*time.Minute)
}

func TestFixedWindowLimiter_WindowReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, 5*time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, _ := l.Allow(context.Background(), "10.0.0.1")
	assert.False(t, allowed)

	// Advance past the window; the count starts over.
	now = now.Add(5*time.Minute + time.Second)
	allowed, _, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, 5*time.Minute, func() time.Time { return now })

	allowed, _, _ := l.Allow(context.Background(), "10.0.0.1")
	assert.True(t, allowed)
	allowed, _, _ = l.Allow(context.Background(), "10.0.0.1")
	assert.False(t, allowed)

	allowed, _, _ = l.Allow(context.Background(), "10.0.0.2")
	assert.True(t, allowed, "a different client gets its own window")
}

func TestFixedWindowLimiter_RetryAfterShrinksAsWindowAges(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, 5*time.Minute, func() time.Time { return now })

	l.Allow(context.Background(), "10.0.0.1")

	now = now.Add(4 * time.Minute)
	_, retryAfter, _ := l.Allow(context.Background(), "10.0.0.1")
	assert.Equal(t, time.Minute, retryAfter)
}

func TestFixedWindowLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(10, 5*time.Minute, func() time.Time { return now })

	l.Allow(context.Background(), "10.0.0.1")
	l.Allow(context.Background(), "10.0.0.2")
	assert.Equal(t, 2, l.len())

	now = now.Add(6 * time.Minute)
	l.cleanup()
	assert.Equal(t, 0, l.len())
}

func TestRateLimitMiddleware_RejectsWith429AndRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(10, 5*time.Minute, func() time.Time { return now })

	handler := RateLimit(l, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastRec *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		lastRec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment-intent", nil)
		req.RemoteAddr = "203.0.113.9:52341"
		handler.ServeHTTP(lastRec, req)
		if i < 10 {
			require.Equal(t, http.StatusOK, lastRec.Code, "request %d", i+1)
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, lastRec.Code)

	retryAfter, err := strconv.Atoi(lastRec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 300)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RetryAfter int `json:"retryAfter"`
	}
	require.NoError(t, json.NewDecoder(lastRec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.Equal(t, "too many checkout attempts, please try again later", body.Error.Message)
	assert.Equal(t, retryAfter, body.RetryAfter)
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func TestRateLimitMiddleware_FailsOpenOnLimiterError(t *testing.T) {
	handler := RateLimit(failingLimiter{}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment-intent", nil)
	req.RemoteAddr = "203.0.113.9:52341"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "limiter backend failures must not block checkout")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		expect     string
	}{
		{"remote addr with port", "203.0.113.9:52341", "", "", "203.0.113.9"},
		{"x-forwarded-for single", "10.0.0.1:1234", "198.51.100.7", "", "198.51.100.7"},
		{"x-forwarded-for chain", "10.0.0.1:1234", "198.51.100.7, 10.0.0.2", "", "198.51.100.7"},
		{"x-real-ip fallback", "10.0.0.1:1234", "", "198.51.100.8", "198.51.100.8"},
		{"invalid xff falls through", "203.0.113.9:52341", "not-an-ip", "", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.expect, clientIP(req))
		})
	}
}
