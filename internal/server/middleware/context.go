package middleware

import (
	"context"

	"prepmaster/backend/internal/access"
	"prepmaster/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	resourceKey = contextKey{"resource"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated identity.
// Handlers read it via IdentityFrom.
func WithIdentity(ctx context.Context, ident *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom returns the identity bound by Authenticate, or nil.
func IdentityFrom(ctx context.Context) *domain.Identity {
	v, _ := ctx.Value(identityKey).(*domain.Identity)
	return v
}

// WithResource returns a context carrying the resource loaded by the ownership check.
func WithResource(ctx context.Context, res access.Owned) context.Context {
	return context.WithValue(ctx, resourceKey, res)
}

// ResourceFrom returns the resource bound by CheckOwnership and true if set.
func ResourceFrom(ctx context.Context) (access.Owned, bool) {
	v, ok := ctx.Value(resourceKey).(access.Owned)
	return v, ok
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the IP bound by ClientIP, or "".
// It has the audit.IPExtractor signature.
func ClientIPFrom(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
