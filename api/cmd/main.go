package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallercloud/turnero/internal/audit"
	"github.com/tallercloud/turnero/internal/clock"
	"github.com/tallercloud/turnero/internal/config"
	"github.com/tallercloud/turnero/internal/engine"
	"github.com/tallercloud/turnero/internal/infrastructure/postgres"
	"github.com/tallercloud/turnero/internal/infrastructure/redis"
	"github.com/tallercloud/turnero/internal/notify"
	"github.com/tallercloud/turnero/internal/pkg/logger"
	"github.com/tallercloud/turnero/internal/security"
	"github.com/tallercloud/turnero/internal/service"
	"github.com/tallercloud/turnero/internal/transport/rest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(2)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		_ = os.Setenv("LOG_FORMAT", cfg.LogFormat)
	}

	logger.Init()
	log := logger.Logger.With().
		Str("service", "turnero").
		Str("env", cfg.AppEnv).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres pool create failed")
		os.Exit(1)
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()

		if err := dbPool.Ping(pingCtx); err != nil {
			log.Error().Err(err).Msg("postgres ping failed")
			os.Exit(1)
		}
		log.Info().Msg("postgres connected")
	}

	store := postgres.New(dbPool)
	directory := postgres.NewDirectory(dbPool)

	cache := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed, continuing with rate limiting fail-open")
		} else {
			log.Info().Msg("redis connected")
		}
	}

	eng := engine.New(store, clock.Real{}, directory)
	if !cfg.OutboxEnabled {
		eng.WithNotifier(notify.NewBoundedQueue(256))
		log.Info().Msg("outbox disabled, using in-memory notifier")
	}
	auditLog := audit.New(log)
	svc := service.New(eng, auditLog)

	verifier := security.NewHS256Verifier(cfg.JWTSecret)
	h := rest.NewHandler(svc)

	httpHandler := rest.NewRouter(rest.RouterDeps{
		RateLimiter: cache,
		Pinger:      cache,
		Handler:     h,
		Verifier:    verifier,
		JWTIssuer:   cfg.JWTIssuer,
		RLLimit:     cfg.RLLimit,
		RLWindow:    cfg.RLWindow,
	})
	if cfg.RequestDeadline > 0 {
		routes, deadline := httpHandler, cfg.RequestDeadline
		httpHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), deadline)
			defer cancel()
			routes.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	if cfg.OutboxEnabled {
		store.StartOutboxWorker(rootCtx, cfg.RabbitURL, cfg.RabbitExchange)
		log.Info().Msg("outbox worker started")
	}
	store.StartIdempotencyKeyCleanup(rootCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
