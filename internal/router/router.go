package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/Landfall-Studios/Sentinel/internal/handler"
	"github.com/Landfall-Studios/Sentinel/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Reputation *handler.ReputationHandler
	Vote       *handler.VoteHandler
	Voter      *handler.VoterHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given
// Fiber app.
func Setup(app *fiber.App, h *Handlers, log zerolog.Logger, corsOrigins, ipSalt string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger(log, ipSalt))
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	app.Get("/health/live", h.Health.Live)
	app.Get("/health", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	readLimiter := middleware.NewReadRateLimiter()
	voteLimiter := middleware.NewVoteRateLimiter()
	statsLimiter := middleware.NewStatsRateLimiter()

	api := app.Group("/api")

	api.Get("/reputation/:targetId", h.Reputation.Get, readLimiter.Handler())
	api.Post("/percentiles/refresh", h.Reputation.RefreshPercentiles)

	api.Post("/votes", h.Vote.Submit, voteLimiter.Handler())

	api.Get("/voters/:voterId", h.Voter.Get, readLimiter.Handler())

	api.Get("/stats", h.Stats.Get, statsLimiter.Handler())
}
