package domain

import (
	"context"
	"errors"
)

// ErrAuthenticationFailed is returned when an operation needs a caller that
// resolves to an existing user and none does.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Identity is the authenticated caller of a single request.
type Identity struct {
	Username    string
	Role        Role
	Authorities []string
}

// NewIdentity builds the request identity for u.
func NewIdentity(u *User) *Identity {
	return &Identity{
		Username:    u.Username,
		Role:        u.Role,
		Authorities: AuthoritiesFor(u.Role),
	}
}

// HasAuthority reports whether the identity was granted the named authority.
func (i *Identity) HasAuthority(name string) bool {
	for _, a := range i.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id. A nil id yields ctx unchanged.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity installed for the current request.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
