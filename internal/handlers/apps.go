package handlers

import (
	"time"

	"productdash/internal/middleware"
	"productdash/internal/notify"
	"productdash/internal/services"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

// BackendOptions configures the reference catalog backend app.
type BackendOptions struct {
	// MediaDir is served under /media when set.
	MediaDir string
	// Tokens enables bearer authentication of the product routes when set.
	Tokens    *services.TokenService
	AccessLog bool
}

// NewBackendApp assembles the Fiber app serving the catalog REST contract.
func NewBackendApp(service *services.ProductService, opts BackendOptions, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", healthCheck)
	if opts.MediaDir != "" {
		app.Static("/media", opts.MediaDir)
	}

	var router fiber.Router = app
	if opts.Tokens != nil {
		router = app.Group("", middleware.AuthRequired(opts.Tokens, logger))
	}
	NewProductHandler(service, logger).RegisterRoutes(router)
	return app
}

// DashboardOptions configures the dashboard app.
type DashboardOptions struct {
	MediaURL  string
	AccessLog bool
}

// NewDashboardApp assembles the Fiber app serving the dashboard API under /api/v1.
func NewDashboardApp(store *services.ProductStore, feed *notify.Feed, opts DashboardOptions, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", healthCheck)
	apiV1 := app.Group("/api/v1")
	NewDashboardHandler(store, feed, opts.MediaURL, logger).RegisterRoutes(apiV1)
	return app
}

func healthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
