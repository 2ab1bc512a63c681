package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/auth"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/database"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/config"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/logging"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/version"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/redis"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/server"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func publishBuildInfo() {
	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)
}

func runGracefulShutdown(srv *server.Server, gateway *websocket.Gateway, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Closes every registered connection and drains the registry.
		gateway.Stop()

		// Stops the pub/sub bridge and the pool monitor.
		cancel()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)
	publishBuildInfo()

	pool := setupDB(cfg)
	defer pool.Close()

	registry := websocket.NewRegistry(clock, cfg.MaxConnectionsPerUser, cfg.WSPingInterval, cfg.WSPongTimeout)
	gateway := websocket.NewGateway(registry)

	healthChecks := []server.HealthCheck{
		{Name: "database", Check: pool.Ping},
	}

	// Without REDIS_URL the service runs single-instance: local fan-out
	// only, no cross-instance bridge. Build the broadcaster in each
	// branch so a missing bridge stays a nil interface.
	var broadcaster *app.Broadcaster
	var bridge *redis.Bridge
	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		bridge = redis.NewBridge(redisClient, gateway, clock)
		broadcaster = app.NewBroadcaster(gateway, bridge)
		healthChecks = append(healthChecks, server.HealthCheck{Name: "redis", Check: redisClient.Ping})
	} else {
		slog.Info("REDIS_URL not set, running single-instance without cross-instance sync")
		broadcaster = app.NewBroadcaster(gateway, nil)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, clock)

	userRepo := database.NewUserRepo(pool)
	eventRepo := database.NewEventRepo(pool)
	inboxRepo := database.NewInboxRepo(pool)

	appSvc := app.NewService(userRepo, eventRepo, inboxRepo, tokens, broadcaster, clock)

	srv := server.NewServer(cfg, appSvc, gateway, healthChecks)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	if bridge != nil {
		go bridge.Run(backgroundCtx)
	}
	go database.MonitorPool(backgroundCtx, pool, clock)

	done := runGracefulShutdown(srv, gateway, cancelBackground)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
