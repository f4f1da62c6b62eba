package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"despensa/internal/config"
	"despensa/internal/infra"
	"despensa/internal/router"
	"despensa/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}

	// Redis backs the promotions cache and the alert queue. Without it the
	// server still sells; promotions come from the database on every call.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache and alert queue")
			rdb = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dispatcher *worker.Dispatcher
	esperarWorkers := func() error { return nil }
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
		cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
		pool := worker.NewPool(rdb, map[string]worker.Procesador{
			worker.JobAlertaStock: worker.NewAlertaStockWorker(infra.NewMailer(cfg), cb),
		})
		esperarWorkers = pool.Start(ctx, cfg.WorkerPoolSize)
	}

	r := router.New(cfg, db, rdb, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("driver", cfg.DBDriver).Msgf("despensa backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	_ = esperarWorkers()
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
