package domain

import "context"

// Owner is the authenticated caller. Every core operation runs on behalf of
// one owner and only sees that owner's properties.
type Owner struct {
	ID    string
	Email string
}

type ownerKey struct{}

// WithOwner returns a context carrying the owner identity.
func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner identity, or ErrUnauthorized when the
// context carries none.
func OwnerFromContext(ctx context.Context) (Owner, error) {
	owner, ok := ctx.Value(ownerKey{}).(Owner)
	if !ok || owner.ID == "" {
		return Owner{}, ErrUnauthorized
	}
	return owner, nil
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID used in audit logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID, or "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
