package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carrent/auth-engine/internal/api"
	"github.com/carrent/auth-engine/internal/core/service"
	"github.com/carrent/auth-engine/internal/infrastructure/config"
	mongodb "github.com/carrent/auth-engine/internal/infrastructure/db/mongo"
	redisdb "github.com/carrent/auth-engine/internal/infrastructure/db/redis"
	"github.com/carrent/auth-engine/internal/infrastructure/identity"
	"github.com/carrent/auth-engine/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		l := logger.Get()
		l.Fatal().Err(err).Msg("configuration load failed")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- Datastores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	// --- Engine wiring ---
	provider := identity.NewProvider(db, identity.Config{
		JWTSecret:           cfg.JWTSecret,
		AccessTTL:           cfg.Identity.AccessTTL,
		RefreshTTL:          cfg.Identity.RefreshTTL,
		RequireConfirmation: cfg.Identity.RequireConfirmation,
	}, log)

	profiles := mongodb.NewProfileRepository(db)
	vehicles := mongodb.NewVehicleRepository(db)
	roles := redisdb.NewRoleCache(rdb)
	warmer := redisdb.NewVehicleCacheWarmer(rdb, vehicles, log)

	engine := service.NewEngine(service.Config{
		BootstrapTimeout:     cfg.Engine.BootstrapTimeout,
		DebounceWindow:       cfg.Engine.DebounceWindow,
		LoopGuardWindow:      cfg.Engine.LoopGuardWindow,
		LoopGuardMaxEvents:   cfg.Engine.LoopGuardMaxEvents,
		ProfileLookupTimeout: cfg.Engine.ProfileLookupTimeout,
		RoleLookupTimeout:    cfg.Engine.RoleLookupTimeout,
		SignOutTimeout:       cfg.Engine.SignOutTimeout,
		ProfileCreateTimeout: cfg.Engine.ProfileCreateTimeout,
		AdminEmail:           cfg.Engine.AdminEmail,
	}, provider, profiles, roles, warmer, log)

	engine.Start(ctx)
	defer engine.Close()

	// --- HTTP server ---
	e := api.NewRouter(engine, db, rdb, cfg.JWTSecret, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
