package ports

import (
	"context"
	"time"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// IdentityResolver turns an Authorization header value into the caller identity.
// A nil identity with a nil error means the caller is anonymous.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (*domain.Identity, error)
}
