package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/core/domain"
)

type stubResolver struct {
	resolveFn func(ctx context.Context, authorization string) (*domain.Identity, error)
	calls     int
}

func (s *stubResolver) Resolve(ctx context.Context, authorization string) (*domain.Identity, error) {
	s.calls++
	return s.resolveFn(ctx, authorization)
}

func runAuthenticate(t *testing.T, resolver *stubResolver, header string) (*domain.Identity, bool, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		got    *domain.Identity
		found  bool
		called bool
	)
	handler := Authenticate(resolver, zerolog.Nop())(func(c echo.Context) error {
		called = true
		got, found = domain.IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return got, found, rec
}

func TestAuthenticate_ValidToken(t *testing.T) {
	resolver := &stubResolver{
		resolveFn: func(_ context.Context, authorization string) (*domain.Identity, error) {
			if authorization != "Bearer good" {
				t.Fatalf("unexpected header %q", authorization)
			}
			return domain.NewIdentity(&domain.User{Username: "alice", Role: domain.RoleAdmin}), nil
		},
	}

	id, ok, _ := runAuthenticate(t, resolver, "Bearer good")
	if !ok {
		t.Fatalf("identity not installed")
	}
	if id.Username != "alice" || id.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.HasAuthority("ROLE_ADMIN") {
		t.Fatalf("expected ROLE_ADMIN authority, got %v", id.Authorities)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	resolver := &stubResolver{
		resolveFn: func(context.Context, string) (*domain.Identity, error) {
			t.Fatalf("resolver should not be called without a header")
			return nil, nil
		},
	}

	if _, ok, _ := runAuthenticate(t, resolver, ""); ok {
		t.Fatalf("expected anonymous request")
	}
}

func TestAuthenticate_RejectedToken(t *testing.T) {
	resolver := &stubResolver{
		resolveFn: func(context.Context, string) (*domain.Identity, error) { return nil, nil },
	}

	if _, ok, _ := runAuthenticate(t, resolver, "Token abc"); ok {
		t.Fatalf("expected anonymous request")
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolve call, got %d", resolver.calls)
	}
}

func TestAuthenticate_ResolverErrorIsSwallowed(t *testing.T) {
	resolver := &stubResolver{
		resolveFn: func(context.Context, string) (*domain.Identity, error) {
			return nil, errors.New("db down")
		},
	}

	if _, ok, _ := runAuthenticate(t, resolver, "Bearer good"); ok {
		t.Fatalf("expected anonymous request after resolver failure")
	}
}
