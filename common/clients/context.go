package clients

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for user ID (forwarded as X-User-ID header)
	UserIDKey contextKey = "user-id"
)

// WithUserID adds a user ID to the context. Outgoing HTTP requests made
// through HTTPClient pick it up and set the X-User-ID header.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID retrieves the user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
