package websocket

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// Handler processes the payload of one inbound envelope type. A nil
// error triggers an ack to the sender; any error becomes an
// internal_error envelope.
type Handler func(ctx context.Context, userID uuid.UUID, payload map[string]any) error

// Gateway couples the connection registry with the envelope router. The
// application layer registers a Handler per envelope type; ping, pong,
// and malformed input are handled here.
type Gateway struct {
	registry *Registry
	handlers map[string]Handler
}

func NewGateway(registry *Registry) *Gateway {
	g := &Gateway{
		registry: registry,
		handlers: make(map[string]Handler),
	}
	// Update intents flow server-to-client; a client sending one is
	// logged and acked, not rejected as unknown. Handle replaces these
	// defaults for callers that process the payload.
	g.handlers[TypeEventUpdate] = logIntent(TypeEventUpdate)
	g.handlers[TypeInboxUpdate] = logIntent(TypeInboxUpdate)
	return g
}

func logIntent(msgType string) Handler {
	return func(ctx context.Context, userID uuid.UUID, payload map[string]any) error {
		slog.Debug("Update intent received", "type", msgType, "user_id", userID.String())
		return nil
	}
}

// Handle registers the handler for an envelope type. Registering ping,
// pong, ack, or error is a programming error.
func (g *Gateway) Handle(msgType string, h Handler) {
	switch msgType {
	case TypePing, TypePong, TypeAck, TypeError:
		panic("websocket: cannot override reserved envelope type " + msgType)
	}
	g.handlers[msgType] = h
}

// Broadcast fans an envelope out to every local connection of the user.
func (g *Gateway) Broadcast(userID uuid.UUID, env Envelope) error {
	return g.broadcast(userID, env, "local")
}

// BroadcastRemote delivers an envelope that originated on another
// instance to every local connection of the user.
func (g *Gateway) BroadcastRemote(userID uuid.UUID, env Envelope) error {
	return g.broadcast(userID, env, "remote")
}

func (g *Gateway) broadcast(userID uuid.UUID, env Envelope, origin string) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	metrics.BroadcastsTotal.WithLabelValues(origin).Inc()
	g.registry.Broadcast(userID, data, nil)
	return nil
}

// ClientCount returns the number of local connections for a user.
func (g *Gateway) ClientCount(userID uuid.UUID) int {
	return g.registry.ClientCount(userID)
}

// Stop shuts down the underlying registry.
func (g *Gateway) Stop() {
	g.registry.Stop()
}

// ServeConnection registers the connection and runs its read loop until
// the client disconnects or the heartbeat expires the connection.
func (g *Gateway) ServeConnection(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) error {
	if err := g.registry.Register(userID, conn); err != nil {
		return err
	}

	start := g.registry.clock.Now()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		g.dispatch(ctx, userID, conn, data)
	}

	g.registry.Unregister(userID, conn)
	metrics.WebSocketConnectionDuration.Observe(g.registry.clock.Since(start).Seconds())
	return nil
}

func (g *Gateway) dispatch(ctx context.Context, userID uuid.UUID, conn *websocket.Conn, data []byte) {
	// One bad message must not take down the read loop.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Message handler panic recovered", "user_id", userID.String(), "panic", rec)
			g.sendError(userID, conn, DetailInternalError)
		}
	}()

	env, detail := Decode(data)
	if detail != "" {
		g.sendError(userID, conn, detail)
		return
	}

	metrics.EnvelopesReceived.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case TypePing:
		g.send(userID, conn, NewPong())
	case TypePong:
		g.registry.RecordPong(userID, conn)
	default:
		handler, ok := g.handlers[env.Type]
		if !ok {
			g.sendError(userID, conn, DetailUnknownType)
			return
		}
		if err := handler(ctx, userID, env.Payload); err != nil {
			slog.Error("Message handler failed", "user_id", userID.String(), "type", env.Type, "error", err)
			g.sendError(userID, conn, DetailInternalError)
			return
		}
		g.send(userID, conn, NewAck(env.Type))
	}
}

func (g *Gateway) send(userID uuid.UUID, conn *websocket.Conn, env Envelope) {
	data, err := env.Marshal()
	if err != nil {
		slog.Error("Failed to marshal envelope", "type", env.Type, "error", err)
		return
	}
	g.registry.Send(userID, conn, data)
}

func (g *Gateway) sendError(userID uuid.UUID, conn *websocket.Conn, detail string) {
	metrics.EnvelopeErrors.WithLabelValues(detail).Inc()
	g.send(userID, conn, NewError(detail))
}
