// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All auth-related context keys used across the application must
// be defined here. This prevents typos, documents dependencies, and makes
// key usage discoverable. Request-id and logger propagation live in
// pkg/observability next to the logger itself.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: All protected API endpoints
	// Type: *auth.AuthContext
	AuthKey Key = "auth_context"

	// UserIDKey contains the directory account id of the caller
	// Set by: middleware.Authenticator after token verification
	// Used by: Logger, per-request group memoization
	// Type: string
	UserIDKey Key = "user_id"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
