package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/blindpi/arccm-api/internal/config"
	"github.com/blindpi/arccm-api/internal/handler"
	"github.com/blindpi/arccm-api/internal/middleware"
	"github.com/blindpi/arccm-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TierHandler        *handler.TierHandler
	RecordHandler      *handler.RecordHandler
	ProgressionHandler *handler.ProgressionHandler
	StatisticsHandler  *handler.StatisticsHandler
	AuditHandler       *handler.AuditHandler
	CatalogHandler     *handler.CatalogHandler
	SeedHandler        *handler.SeedHandler
	JWTMiddleware      fiber.Handler
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

	adminOnly := middleware.RequireRole("SA", "AD")
	compliance := app.Group("/api/v1/compliance", jwtMiddleware)

	if deps.TierHandler != nil || deps.RecordHandler != nil || deps.ProgressionHandler != nil {
		users := compliance.Group("/users")
		users.Use(middleware.RateLimit("compliance-users", 30, time.Minute))

		if deps.TierHandler != nil {
			// Tier moves and forced reconciliation are administrative actions.
			deps.TierHandler.Register(users.Group("", adminOnly))
		}
		if deps.RecordHandler != nil {
			deps.RecordHandler.RegisterUserRoutes(users)
		}
		if deps.ProgressionHandler != nil {
			deps.ProgressionHandler.Register(users)
		}
	}

	if deps.RecordHandler != nil {
		records := compliance.Group("/records")
		records.Use(middleware.RateLimit("compliance-records", 60, time.Minute))
		deps.RecordHandler.Register(records)
	}

	if deps.StatisticsHandler != nil {
		statistics := compliance.Group("/statistics")
		deps.StatisticsHandler.Register(statistics)
	}

	if deps.CatalogHandler != nil {
		catalog := compliance.Group("/requirements")
		deps.CatalogHandler.Register(catalog)
		deps.CatalogHandler.RegisterAdmin(catalog.Group("", adminOnly))
	}

	if deps.AuditHandler != nil {
		audit := compliance.Group("/audit", adminOnly)
		deps.AuditHandler.Register(audit)
	}

	if deps.SeedHandler != nil {
		seed := app.Group("/api/v1/tools/seed")
		deps.SeedHandler.Register(seed)
	}
}
