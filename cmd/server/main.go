// Package main is the entry point for the primetrade web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/harrylevesque/primetrade/internal/api"
	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/config"
	"github.com/harrylevesque/primetrade/internal/metrics"
	"github.com/harrylevesque/primetrade/internal/middleware"
	"github.com/harrylevesque/primetrade/internal/service"
	"github.com/harrylevesque/primetrade/internal/store"
	"github.com/harrylevesque/primetrade/internal/utils"
	"github.com/harrylevesque/primetrade/internal/web"
)

var (
	// Set via ldflags.
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()
	if *showVersion {
		fmt.Printf("primetrade %s (%s)\n", version, gitCommit)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := utils.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting primetrade", map[string]interface{}{
		"version": version,
		"env":     cfg.Server.Env,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()
	logger.Info("Database connection established", nil)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(cfg.Database.DSN(), logger.WithPrefix("migrate")); err != nil {
			return err
		}
	}

	revocations, closeRevocations, err := newRevocationStore(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeRevocations()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	secure := cfg.IsProduction()
	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL, revocations)
	authMW := auth.NewMiddleware(tokens, cfg.Auth.CookieName, secure, logger.WithPrefix("auth"))
	accounts := service.NewAccountService(store.NewUserStore(db), tokens, cfg.Auth.BcryptCost, m, logger)
	tasks := service.NewTaskService(store.NewTaskStore(db), m)

	var authLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst, cfg.RateLimit.TrustProxy, m)
		go limiter.Run(ctx, 10*time.Minute)
		authLimiter = limiter.Middleware
	}

	sessionKey := cfg.Auth.SessionKey
	if sessionKey == "" {
		sessionKey = cfg.Auth.JWTSecret
	}
	pages, err := web.New(web.Config{
		Accounts:   accounts,
		Tasks:      tasks,
		AuthMW:     authMW,
		Sessions:   web.NewFlashStore([]byte(sessionKey), secure),
		Limiter:    authLimiter,
		CookieName: cfg.Auth.CookieName,
		TokenTTL:   cfg.Auth.TokenTTL,
		Secure:     secure,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		Handler: api.NewHandler(api.HandlerConfig{
			Accounts:   accounts,
			Tasks:      tasks,
			AuthMW:     authMW,
			Probe:      dbProbe(db),
			CookieName: cfg.Auth.CookieName,
			TokenTTL:   cfg.Auth.TokenTTL,
			Secure:     secure,
			Logger:     logger,
		}),
		AuthMW:      authMW,
		Pages:       pages,
		AuthLimiter: authLimiter,
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal", nil)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Shutdown complete", nil)
	return nil
}

func dbProbe(db *sqlx.DB) api.DBProbe {
	return func(ctx context.Context) (time.Time, error) {
		return store.Now(ctx, db)
	}
}

// newRevocationStore uses Redis when configured so logouts survive restarts and
// are shared between instances.
func newRevocationStore(ctx context.Context, cfg config.RedisConfig, logger utils.Logger) (auth.RevocationStore, func(), error) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not set, keeping token revocations in memory", nil)
		return auth.NewMemoryRevocations(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Redis connection established", map[string]interface{}{"addr": cfg.Addr})

	return auth.NewRedisRevocations(client, cfg.KeyPrefix), func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close redis client", map[string]interface{}{"error": err.Error()})
		}
	}, nil
}
