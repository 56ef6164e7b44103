package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/cache"
	"github.com/oggyb/tembichat/internal/config"
	"github.com/oggyb/tembichat/internal/db"
	"github.com/oggyb/tembichat/internal/logger"
	"github.com/oggyb/tembichat/internal/notify"
	"github.com/oggyb/tembichat/internal/server"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Redis only backs the liked-you counter and notifications, so the
	// API still comes up without it.
	redisCache := cache.NewRedisCache(cfg)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, continuing without cache", "addr", cfg.Redis.Addr, "err", err)
	}
	cancelPing()
	defer redisCache.Close()

	appCtx := app.New(cfg, database, redisCache, log)

	notifier := notify.Multi{
		notify.NewRedisNotifier(redisCache, cfg.Payments.NotifyChannel),
		notify.NewLogNotifier(log, cfg.Payments.WhatsAppNotifyPhone),
	}
	api := server.NewAPI(appCtx, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := api.Demo.EnsureAccounts(ctx); err != nil {
		log.Error("failed to create demo accounts", "err", err)
		os.Exit(1)
	}
	if cfg.IsDevelopment() {
		if err := db.SeedSampleProfiles(database, cfg.Auth.BcryptCost); err != nil {
			log.Error("failed to seed sample profiles", "err", err)
		}
	}

	limiter := server.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, nil)
	limiter.StartSweeper(ctx, time.Minute, 10*time.Minute)

	registrars := api.Registrars()
	httpServer := server.NewHTTPServer(cfg, api.Router(limiter))

	grpcServer, err := server.NewGRPCServer(cfg, registrars...)
	if err != nil {
		log.Error("failed to init gRPC server", "err", err)
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting gRPC server", "addr", grpcServer.Addr())
		if err := grpcServer.Serve(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", "err", err)
	}
	grpcServer.Shutdown(shutdownCtx)
	log.Info("server stopped")
}
