package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/promptlab-dev/promptlab-api/internal/config"
	"github.com/promptlab-dev/promptlab-api/internal/handler"
	"github.com/promptlab-dev/promptlab-api/internal/middleware"
	"github.com/promptlab-dev/promptlab-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UseCaseHandler    *handler.UseCaseHandler
	EvaluationHandler *handler.EvaluationHandler
	AdminHandler      *handler.AdminHandler
	FeedHandler       *handler.FeedHandler
	JWTMiddleware     fiber.Handler
	GenerateLimiter   fiber.Handler
	EvaluateLimiter   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Use case generation
	if deps.UseCaseHandler != nil {
		useCases := app.Group("/api/v2/use-cases", jwtMiddleware)
		if deps.GenerateLimiter != nil {
			useCases.Use(deps.GenerateLimiter)
		}
		deps.UseCaseHandler.Register(useCases)
	}

	// Evaluations & edit sessions
	if deps.EvaluationHandler != nil {
		evaluations := app.Group("/api/v2/evaluations", jwtMiddleware)
		if deps.EvaluateLimiter != nil {
			evaluations.Use(deps.EvaluateLimiter)
		}
		deps.EvaluationHandler.Register(evaluations)

		editSessions := app.Group("/api/v2/edit-sessions", jwtMiddleware)
		deps.EvaluationHandler.RegisterEditSessions(editSessions)
	}

	// Admin rollup & live feed
	if deps.AdminHandler != nil {
		admin := app.Group("/api/v2/admin", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminHandler.Register(admin)

		if deps.FeedHandler != nil {
			deps.FeedHandler.Register(admin)
		}
	}
}
