package ports

import (
	"time"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

// TokenCodec issues and inspects self-contained bearer tokens.
type TokenCodec interface {
	Issue(username string, role domain.Role) (string, time.Time, error)
	// Validate never panics and reports false for any malformed, forged or
	// expired token.
	Validate(token string) bool
	// Subject extracts the username. Call Validate first.
	Subject(token string) (string, error)
	ExpiresAt(token string) (time.Time, error)
}
