package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" default:"30m"`

	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" default:"15s"`
	WSPongTimeout  time.Duration `env:"WS_PONG_TIMEOUT" default:"45s"`

	MaxConnectionsPerUser   int `env:"MAX_CONNECTIONS_PER_USER" default:"50"`
	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	WSConnectionsPerIP float64 `env:"WS_CONNECTIONS_PER_IP" default:"20"`
	WSConnectionRate   float64 `env:"WS_CONNECTION_RATE" default:"5"`
	WSConnectionBurst  int     `env:"WS_CONNECTION_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	// REDIS_URL stays optional: without it the service runs
	// single-instance and skips the cross-instance bridge.
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}

	if cfg.WSPingInterval <= 0 {
		return errors.New("WS_PING_INTERVAL must be positive")
	}
	if cfg.WSPongTimeout <= cfg.WSPingInterval {
		return errors.New("WS_PONG_TIMEOUT must be greater than WS_PING_INTERVAL")
	}

	if cfg.AppEnv == "production" {
		lowered := strings.ToLower(cfg.DatabaseURL)
		for _, mode := range []string{"disable", "allow"} {
			if strings.Contains(lowered, "sslmode="+mode) {
				return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
			}
		}
	}

	if cfg.MaxConnectionsPerUser < 1 {
		return errors.New("MAX_CONNECTIONS_PER_USER must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}

	return nil
}
