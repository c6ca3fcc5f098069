// Package app wires the HTTP handler from the loaded configuration. It is
// shared by the long-running server and the serverless entry point.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/internal/config"
	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/cache"
	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/handlers"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
	"github.com/arnavshah/shift-roster-api/pkg/store"
)

// EngineOptions converts the engine section of the configuration
func EngineOptions(cfg *config.Config) scheduler.Options {
	return scheduler.Options{
		MaxRepairIterations: cfg.Engine.MaxRepairIterations,
		TimeBudget:          cfg.Engine.TimeBudget,
	}
}

// SetGinMode applies the configured gin mode, defaulting to release
func SetGinMode(cfg *config.Config) {
	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
		return
	}
	gin.SetMode(cfg.GinMode)
}

// Build opens the database, seeds the admin user and connects the optional
// Redis cache. The returned cleanup releases the cache connection.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*handlers.Handler, func(), error) {
	db, err := database.InitDB(database.Config{URL: cfg.DatabaseURL, Path: cfg.DataPath})
	if err != nil {
		return nil, nil, err
	}

	if cfg.JWTSecret == "" || cfg.APIMasterSecret == "" {
		log.Warn("JWT_SECRET or API_MASTER_SECRET is empty; tokens and API keys are signed with an empty key")
	}
	svc := auth.NewService(cfg.JWTSecret, cfg.APIMasterSecret)

	created, err := svc.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	if created {
		log.Info("admin user created", zap.String("username", cfg.AdminUsername))
	}

	h := &handlers.Handler{
		DB:   db,
		Auth: svc,
		Store: &store.DBStore{
			DB:   db,
			Seed: &store.FileStore{Path: cfg.InitialDataPath},
		},
		CacheTTL:      cfg.Redis.TTL,
		Engine:        EngineOptions(cfg),
		Log:           log,
		RequireAPIKey: cfg.RequireAPIKey,
	}

	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, generation cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rc.Close()
		} else {
			log.Info("generation cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
			h.Cache = rc
			cleanup = func() { _ = rc.Close() }
		}
	}
	return h, cleanup, nil
}
