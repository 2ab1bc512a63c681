package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token, not cookies, so
	// cross-origin upgrades carry no ambient authority.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const closeWriteTimeout = 5 * time.Second

// handleSyncWebSocket admits a connection in three stages: connection
// limits before the upgrade, token verification after it, then hand-off
// to the gateway read loop.
func (s *Server) handleSyncWebSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(reason)).Inc()
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("websocket connection rejected", "ip", ip, "reason", reason)
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "connection limit exceeded"})
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Warn("websocket upgrade failed", "ip", ip, "error", err)
		return nil
	}

	userID, err := s.app.VerifyToken(c.QueryParam("token"))
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("auth_failed").Inc()
		closeWithPolicyViolation(conn)
		return nil
	}

	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()
	slog.Info("websocket connected", "user_id", userID.String(), "ip", ip)

	if err := s.gateway.ServeConnection(c.Request().Context(), userID, conn); err != nil {
		slog.Warn("websocket registration failed", "user_id", userID.String(), "error", err)
	}
	return nil
}

// closeWithPolicyViolation rejects an already-upgraded connection that
// failed token verification. The registry is never touched.
func closeWithPolicyViolation(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid or missing token")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	_ = conn.Close()
}
