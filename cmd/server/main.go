package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pvzlink/parcel-system/internal/api"
	"github.com/pvzlink/parcel-system/internal/core/service"
	"github.com/pvzlink/parcel-system/internal/infrastructure/config"
	mongodb "github.com/pvzlink/parcel-system/internal/infrastructure/db/mongo"
	redisdb "github.com/pvzlink/parcel-system/internal/infrastructure/db/redis"
	"github.com/pvzlink/parcel-system/internal/infrastructure/queue"
	"github.com/pvzlink/parcel-system/internal/infrastructure/scheduler"
	"github.com/pvzlink/parcel-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title        Parcel System API
// @version      1.0
// @description  Package delivery tracking backend with an asynchronous status lifecycle.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}()

	packageRepo := mongodb.NewPackageRepository(db)
	userRepo := mongodb.NewUserRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := packageRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("package indexes failed")
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user indexes failed")
	}

	// --- Core services ---
	timers := scheduler.New(logger.Named("scheduler"))
	defer timers.Stop()

	pending := redisdb.NewPendingAdvanceStore(rdb)
	dedup := redisdb.NewDedupChecker(rdb)

	lifecycle := service.NewLifecycleService(
		packageRepo, auditRepo, timers, pending,
		cfg.AutoAdvanceDelay, logger.Named("lifecycle"),
	)
	packages := service.NewPackageService(packageRepo, logger.Named("packages"))
	auth := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	scans := service.NewScanService(lifecycle, packageRepo, dedup, logger.Named("scans"))

	// Re-arm auto-advance timers that were pending when the process last
	// stopped, before traffic can observe stale paid packages.
	if err := lifecycle.RecoverPending(ctx); err != nil {
		log.Warn().Err(err).Msg("pending auto-advance recovery failed")
	}

	dispatcher := queue.NewDispatcher(cfg.ScanWorkers, scans, logger.Named("dispatcher"))
	dispatcher.Start(ctx)

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Auth:      auth,
		Packages:  packages,
		Lifecycle: lifecycle,
		Events:    dispatcher,
		Mongo:     db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Log:       logger.Named("http"),
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
