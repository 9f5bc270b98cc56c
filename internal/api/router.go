package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/islab/coordinates-registry/docs"
	"github.com/islab/coordinates-registry/internal/api/handler"
	"github.com/islab/coordinates-registry/internal/api/middleware"
	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log         zerolog.Logger
	Resolver    ports.IdentityResolver
	Auth        ports.AuthService
	Coordinates ports.CoordinatesService
	Persons     ports.PersonService
	// Subscribers serves the websocket change feed.
	Subscribers http.Handler
	// Health lists the dependencies checked by the readiness probe.
	Health map[string]handler.Pinger
	// AuthRateLimit is the per-client rate on /auth routes, in requests per second.
	// Zero disables limiting.
	AuthRateLimit float64
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "coordinates",
		Registerer: reg,
	}))
	e.Use(middleware.Authenticate(d.Resolver, d.Log))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	auth := e.Group("/auth")
	if d.AuthRateLimit > 0 {
		auth.Use(echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStore(rate.Limit(d.AuthRateLimit))))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Coordinates routes ---
	coordinatesHandler := handler.NewCoordinatesHandler(d.Coordinates)
	v1 := e.Group("/v1", middleware.RequireRole(domain.RoleUser, domain.RoleAdmin))
	v1.GET("/coordinates", coordinatesHandler.List)
	v1.POST("/coordinates", coordinatesHandler.Create)
	v1.PUT("/coordinates/:id", coordinatesHandler.Alter)
	v1.DELETE("/coordinates/:id", coordinatesHandler.Delete)

	personHandler := handler.NewPersonHandler(d.Persons)
	v1.GET("/persons", personHandler.List)
	v1.POST("/persons", personHandler.Create)

	// --- Change feed ---
	if d.Subscribers != nil {
		e.GET("/ws", echo.WrapHandler(d.Subscribers))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness
	e.GET("/health/ready", healthHandler.Readiness) // readiness

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
