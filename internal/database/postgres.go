package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/retry"
)

var connectRetryPolicy = retry.Policy{
	MaxAttempts:      5,
	InitialBackoff:   time.Second,
	RateLimitBackoff: time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// Connect opens a pgx connection pool and verifies it with a ping.
// Transient failures are retried, startup often races the database.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.ConnConfig.Tracer = &MetricsTracer{}

	slog.Info("Database SSL mode", "sslmode", extractSSLMode(databaseURL))

	pool, err := retry.Do(ctx, connectRetryPolicy, classifyConnectError, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

func classifyConnectError(err error) retry.Action {
	if strings.Contains(err.Error(), "failed to parse") {
		return retry.Stop
	}
	return retry.Retry
}

func extractSSLMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unknown"
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "" {
		return "prefer (default)"
	}
	return mode
}

const (
	// migrationLockID is a PostgreSQL advisory lock ID for coordinating
	// migrations across concurrently starting instances.
	// Value: 0x666c6f777374 ("flowst" in ASCII hex)
	migrationLockID             = 0x666c6f777374
	migrationLockReleaseTimeout = 5 * time.Second
)

// migrations are idempotent, every statement is safe to re-run on an
// already migrated database.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		password_reset_token TEXT,
		password_reset_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
	`CREATE INDEX IF NOT EXISTS users_password_reset_token_idx ON users (password_reset_token)
		WHERE password_reset_token IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		is_all_day BOOLEAN NOT NULL DEFAULT FALSE,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS events_user_interval_idx ON events (user_id, start_time, end_time)`,

	`CREATE TABLE IF NOT EXISTS inbox_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'NOTE',
		priority SMALLINT NOT NULL DEFAULT 3,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS inbox_items_user_created_idx ON inbox_items (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS inbox_items_user_status_idx ON inbox_items (user_id, status)`,
}

// RunMigrations applies the schema under a session advisory lock so only
// one instance migrates at a time.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("failed to release migration lock", "error", err)
		}
	}()

	slog.Info("running database migrations")
	for _, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	slog.Info("database migrations completed")
	return nil
}

// poolStatsInterval controls how often pool gauges are refreshed.
const poolStatsInterval = 15 * time.Second

// MonitorPool periodically publishes connection pool gauges until ctx is
// cancelled. Run it in its own goroutine.
func MonitorPool(ctx context.Context, pool *pgxpool.Pool, clock clockwork.Clock) {
	ticker := clock.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			stat := pool.Stat()
			metrics.DBConnectionsCurrent.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
			metrics.DBConnectionsCurrent.WithLabelValues("idle").Set(float64(stat.IdleConns()))
			metrics.DBConnectionsCurrent.WithLabelValues("total").Set(float64(stat.TotalConns()))
		case <-ctx.Done():
			return
		}
	}
}
