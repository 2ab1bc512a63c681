package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

type contextKey struct{}

// NewID generates a short hex correlation ID (4 random bytes). The HTTP
// middleware assigns one per request; the sync gateway assigns one per
// connection so a socket's lifetime can be traced across log lines.
func NewID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithID returns a new context carrying the given correlation ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID extracts the correlation ID from ctx. The second return is false
// when no ID has been assigned.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Handler decorates a slog.Handler with a "correlation_id" attribute
// whenever the record's context carries one. Installed once at logger
// init so handlers never thread the ID manually.
type Handler struct {
	inner slog.Handler
}

// NewHandler wraps inner with correlation ID injection.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
