package middleware

import (
	"context"

	"skald/backend/internal/platform/rbac"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the request's identity.
// Handlers read it via GetIdentity; nothing else holds per-request user state.
func WithIdentity(ctx context.Context, id rbac.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from ctx and true if set; otherwise a zero
// identity and false.
func GetIdentity(ctx context.Context) (rbac.Identity, bool) {
	v, ok := ctx.Value(identityKey).(rbac.Identity)
	return v, ok
}
