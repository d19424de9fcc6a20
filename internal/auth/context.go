package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const callerIDKey contextKey = "caller_id"

// ContextWithCaller stores the authenticated caller's identity id.
func ContextWithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerIDKey, userID)
}

// CallerFromContext returns the authenticated caller's identity id.
// ok is false when the request was not authenticated.
func CallerFromContext(ctx context.Context) (userID string, ok bool) {
	userID, ok = ctx.Value(callerIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// MustCallerFromContext returns the caller id or panics.
// Use only behind the auth middleware.
func MustCallerFromContext(ctx context.Context) string {
	userID, ok := CallerFromContext(ctx)
	if !ok {
		panic("caller not found in context - ensure auth middleware is applied")
	}
	return userID
}
