// Package ctxkeys holds the shared context keys for the API layer.
// Extracted to a leaf package to avoid import cycles between api and
// api/handlers.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys.
// Using a named type avoids collisions with string keys from other
// packages at runtime (context.Value compares both type and value).
type Key string

const (
	// UserID is the context key for the authenticated user. Injected by
	// AuthMiddleware from JWT claims, read by the chat and history handlers.
	UserID Key = "user_id"

	// TenantID is the context key for the caller's tenant. Injected by
	// AuthMiddleware from JWT claims.
	TenantID Key = "tenant_id"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value reads a ctxkeys.Key string from the context; empty when absent.
func Value(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
