package server

import (
	"strings"

	"github.com/fathima-sithara/snapshare/internal/config"
	"github.com/fathima-sithara/snapshare/internal/handlers"
	"github.com/fathima-sithara/snapshare/internal/metrics"
	"github.com/fathima-sithara/snapshare/internal/middleware"
	"github.com/fathima-sithara/snapshare/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Deps struct {
	Handlers      routes.Handlers
	Authenticator middleware.Authenticator
	Metrics       *metrics.Metrics
	// AuthLimiter is nil when Redis is disabled.
	AuthLimiter *middleware.RateLimiter
	IPLimiter   *middleware.IPRateLimiter
}

// New initializes the Fiber application with config, middlewares, and routes.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "snapshare",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(corsConfig(cfg.App.CORSOrigins)))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", handlers.Health)
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	if deps.IPLimiter != nil {
		app.Use("/api", deps.IPLimiter.Handler())
	}

	authLimit := func(c *fiber.Ctx) error { return c.Next() }
	if deps.AuthLimiter != nil {
		authLimit = deps.AuthLimiter.MiddlewareByKey(middleware.KeyByIPAndRoute)
	}
	requireAuth := middleware.RequireAuth(deps.Authenticator, cfg.JWT.CookieName)

	routes.Setup(app, deps.Handlers, requireAuth, authLimit)
	app.Use(handlers.NotFound)

	return app
}

// corsConfig allows credentials only for explicit origins; the wildcard
// cannot be combined with cookies.
func corsConfig(origins string) cors.Config {
	origins = strings.TrimSpace(origins)
	if origins == "" || origins == "*" {
		return cors.Config{AllowOrigins: "*"}
	}
	return cors.Config{AllowOrigins: origins, AllowCredentials: true}
}
