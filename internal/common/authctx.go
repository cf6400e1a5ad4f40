package common

import "context"

// Identity describes the authenticated caller attached to a request context.
type Identity struct {
	ID    int64
	Email string
	Role  string
	Name  string
}

type ctxKey string

const identityKey ctxKey = "auth/identity"

// WithIdentity stores the authenticated caller on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated caller from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
