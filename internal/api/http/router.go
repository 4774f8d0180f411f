package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/MohamadAlaskari/EventHub/internal/api/http/handlers"
	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Get("/verify-email", cfg.Auth.VerifyEmail)

	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Auth.Logout)
	authGroup.Get("/profile", cfg.AuthMiddleware.Handle, auth.RequireVerifiedEmail(), cfg.Auth.Profile)
}
