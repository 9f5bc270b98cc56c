package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	repo             ports.UserRepository
	tokens           ports.TokenCodec
	allowAdminSignup bool
	log              zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenCodec, allowAdminSignup bool, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, allowAdminSignup: allowAdminSignup, log: log}
}

// Register creates a USER account, or an ADMIN account when admin signup is enabled.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if r == domain.RoleAdmin && !s.allowAdminSignup {
		return nil, fmt.Errorf("register %s: %w", username, domain.ErrForbidden)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &ports.LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}
