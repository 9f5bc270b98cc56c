package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/api/metrics"
	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// Authenticate resolves the Authorization header into a request identity and
// installs it on the request context. It never rejects a request: absent,
// invalid or expired tokens and resolver failures leave the request
// anonymous, and access decisions are made further down the chain.
func Authenticate(resolver ports.IdentityResolver, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			header := req.Header.Get(echo.HeaderAuthorization)
			if header == "" {
				metrics.AuthResolutionsTotal.WithLabelValues("anonymous").Inc()
				return next(c)
			}

			id, err := resolver.Resolve(req.Context(), header)
			switch {
			case err != nil:
				metrics.AuthResolutionsTotal.WithLabelValues("error").Inc()
				log.Warn().
					Err(err).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Msg("cannot set user authentication")
			case id == nil:
				metrics.AuthResolutionsTotal.WithLabelValues("rejected").Inc()
			default:
				metrics.AuthResolutionsTotal.WithLabelValues("authenticated").Inc()
				c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), id)))
			}

			return next(c)
		}
	}
}
