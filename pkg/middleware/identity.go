package middleware

import "context"

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// WithUserID stores the caller identity in the context. The API gateway
// authenticates requests and forwards the identity as X-User-ID; services
// behind it only carry the id for logging and attribution.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the caller identity from the context, if set.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
