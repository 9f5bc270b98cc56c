package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

const bearerPrefix = "Bearer "

// IdentityResolver maps a bearer token to the identity of an existing user.
type IdentityResolver struct {
	tokens ports.TokenCodec
	users  ports.UserRepository
}

func NewIdentityResolver(tokens ports.TokenCodec, users ports.UserRepository) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users}
}

// Resolve returns (nil, nil) for an absent, malformed, invalid or expired
// token and for tokens whose subject no longer exists. Only unexpected
// repository failures are reported as errors.
func (r *IdentityResolver) Resolve(ctx context.Context, authorization string) (*domain.Identity, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return nil, nil
	}
	token := authorization[len(bearerPrefix):]
	if !r.tokens.Validate(token) {
		return nil, nil
	}

	username, err := r.tokens.Subject(token)
	if err != nil || username == "" {
		return nil, nil
	}

	user, err := r.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve identity %q: %w", username, err)
	}

	return domain.NewIdentity(user), nil
}
