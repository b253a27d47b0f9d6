package auth

import "context"

type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var identityContextKey = &contextKey{name: "auth_identity"}

// Identity is the caller identity attached to the request context by the
// session middleware.
type Identity struct {
	Email string
}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// CurrentIdentity returns the caller identity from the context, if any.
func CurrentIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
