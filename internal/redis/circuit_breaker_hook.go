package redis

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// CircuitBreakerHook implements redis.Hook to add circuit breaker
// protection to all Redis operations, preventing cascading failures when
// Redis becomes unavailable or slow. The hooks pattern covers every
// command automatically instead of wrapping each call site.
type CircuitBreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook creates a circuit breaker hook. The breaker opens
// at a 60% failure rate over at least 5 requests, and probes again after
// 30 seconds.
func NewCircuitBreakerHook() *CircuitBreakerHook {
	settings := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRate >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			// A cache miss is not a Redis failure.
			return err == nil || errors.Is(err, goredis.Nil)
		},
	}

	return &CircuitBreakerHook{cb: gobreaker.NewCircuitBreaker(settings)}
}

// DialHook wraps connection establishment with the circuit breaker
func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (any, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			return nil, err
		}
		return conn.(net.Conn), nil
	}
}

// ProcessHook wraps command execution with the circuit breaker
func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmd)
		})
		return err
	}
}

// ProcessPipelineHook wraps pipelined command execution with the circuit breaker
func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		return err
	}
}

// GetState returns the current circuit breaker state.
func (h *CircuitBreakerHook) GetState() gobreaker.State {
	return h.cb.State()
}

// GetCounts returns the current circuit breaker counts.
func (h *CircuitBreakerHook) GetCounts() gobreaker.Counts {
	return h.cb.Counts()
}
