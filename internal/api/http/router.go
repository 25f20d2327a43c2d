package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/idzvilla/vin-car/internal/api/http/handlers"
	"github.com/idzvilla/vin-car/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Operators      *handlers.OperatorsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/operators/register", cfg.Operators.Register)
	authGroup.Post("/operators/login", cfg.Operators.Login)
	authGroup.Post("/requesters/token", cfg.Operators.RequesterToken)

	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle)
	v1.Post("/tickets", auth.RequireRequester(), cfg.Tickets.Submit)
	v1.Get("/tickets/:id", cfg.Tickets.Get)
	v1.Post("/tickets/:id/claim", auth.RequireOperator(), cfg.Tickets.Claim)
	v1.Post("/tickets/:id/complete", auth.RequireOperator(), cfg.Tickets.Complete)
	v1.Post("/subscriptions/grant", auth.RequireOperator(), cfg.Operators.GrantReports)
}
