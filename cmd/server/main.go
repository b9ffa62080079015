package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Landfall-Studios/Sentinel/internal/config"
	"github.com/Landfall-Studios/Sentinel/internal/db"
	"github.com/Landfall-Studios/Sentinel/internal/handler"
	"github.com/Landfall-Studios/Sentinel/internal/middleware"
	"github.com/Landfall-Studios/Sentinel/internal/repository"
	"github.com/Landfall-Studios/Sentinel/internal/router"
	"github.com/Landfall-Studios/Sentinel/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := middleware.NewLogger("info", "sentinel")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := middleware.NewLogger(cfg.LogLevel, "sentinel")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := repository.NewStore(pool, log)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	hot := service.NewHotCache(cfg.RedisURL, log)
	defer hot.Close()

	repSvc := service.NewReputationService(store, cfg.Reputation, hot, log)
	consensus := service.NewConsensusTracker(store, cfg.Reputation, log)
	scheduler := service.NewScheduler(repSvc, consensus, store, cfg.Reputation, log)

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	go scheduler.Start(schedCtx)

	handler.InitMetrics(pool)

	app := fiber.New(fiber.Config{
		AppName:      "Sentinel Reputation API",
		ServerHeader: "Sentinel",
	})

	router.Setup(app, &router.Handlers{
		Reputation: handler.NewReputationHandler(repSvc),
		Vote:       handler.NewVoteHandler(repSvc),
		Voter:      handler.NewVoterHandler(repSvc),
		Stats:      handler.NewStatsHandler(store),
		Health:     handler.NewHealthHandler(pool, hot.Client()),
	}, log, cfg.CORSOrigins, cfg.IPHashSalt)

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("env", cfg.Environment).Msg("reputation service starting")
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")

	stopCtx, stopCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer stopCancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("scheduler did not stop cleanly")
	}

	if err := app.ShutdownWithContext(stopCtx); err != nil {
		log.Warn().Err(err).Msg("server did not stop cleanly")
	}
}
