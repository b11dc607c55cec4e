package shared

import (
	"context"
	"time"
)

// Identity describes the authenticated actor resolved from a session token.
type Identity struct {
	UserID    int64
	IDNumber  string
	RoleID    int64
	RoleName  string
	RawToken  string
	ExpiresAt time.Time
}

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the resolved identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
