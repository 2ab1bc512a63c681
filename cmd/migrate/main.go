package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/database"
)

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		timeout     = flag.Duration("timeout", 60*time.Second, "Overall timeout for connect and migrate")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()

	pool, err := database.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	// The advisory lock inside RunMigrations makes concurrent invocations
	// safe; whichever instance wins applies the schema.
	if err := database.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	slog.Info("Migration complete", "duration_ms", time.Since(start).Milliseconds())
}

func sanitizeURL(url string) string {
	// Hide password in the URL for logging
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			credParts := strings.Split(parts[0], ":")
			if len(credParts) >= 2 {
				return credParts[0] + ":***@" + parts[1]
			}
		}
	}
	return url
}
