package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type userClients map[*websocket.Conn]*clientWriter

// registryCmd is the command interface for the Registry actor.
type registryCmd interface{ isRegistryCmd() }

type baseRegistryCmd struct{}

func (baseRegistryCmd) isRegistryCmd() {}

type registerCmd struct {
	baseRegistryCmd
	userID       uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseRegistryCmd
	userID     uuid.UUID
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseRegistryCmd
	userID  uuid.UUID
	data    []byte
	exclude *websocket.Conn
}

type sendCmd struct {
	baseRegistryCmd
	userID     uuid.UUID
	connection *websocket.Conn
	data       []byte
}

type pongCmd struct {
	baseRegistryCmd
	userID     uuid.UUID
	connection *websocket.Conn
}

type clientCountCmd struct {
	baseRegistryCmd
	userID       uuid.UUID
	replyChannel chan int
}

type totalClientsCmd struct {
	baseRegistryCmd
	replyChannel chan int
}

type stopRegistryCmd struct {
	baseRegistryCmd
}

// Registry tracks every WebSocket connection per user and fans envelopes
// out to them. All state lives in a single goroutine fed by a command
// channel; each connection gets its own writer goroutine that also runs
// the heartbeat.
type Registry struct {
	cmdCh             chan registryCmd
	clock             clockwork.Clock
	activeClients     map[uuid.UUID]userClients
	done              chan struct{}
	stopTimeout       time.Duration
	maxClientsPerUser int
	pingInterval      time.Duration
	pongTimeout       time.Duration
}

// NewRegistry creates and starts a registry.
// maxClientsPerUser limits simultaneous connections per user (prevents resource exhaustion).
// pingInterval and pongTimeout configure the per-connection heartbeat.
func NewRegistry(clock clockwork.Clock, maxClientsPerUser int, pingInterval, pongTimeout time.Duration) *Registry {
	r := &Registry{
		cmdCh:             make(chan registryCmd, 256),
		clock:             clock,
		activeClients:     make(map[uuid.UUID]userClients),
		done:              make(chan struct{}),
		stopTimeout:       stopTimeout,
		maxClientsPerUser: maxClientsPerUser,
		pingInterval:      pingInterval,
		pongTimeout:       pongTimeout,
	}
	go r.run()
	return r
}

// Register adds a connection for a user.
// Returns an error only if the per-user connection limit is reached.
func (r *Registry) Register(userID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	r.cmdCh <- registerCmd{userID: userID, connection: conn, errorChannel: errCh}

	// Use timeout to prevent blocking forever if the registry is stuck
	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection for a user.
func (r *Registry) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	r.cmdCh <- unregisterCmd{userID: userID, connection: conn}
}

// Broadcast fans data out to every connection the user has on this
// instance. exclude skips one connection, pass nil to reach all.
func (r *Registry) Broadcast(userID uuid.UUID, data []byte, exclude *websocket.Conn) {
	r.cmdCh <- broadcastCmd{userID: userID, data: data, exclude: exclude}
}

// Send delivers data to a single connection, used for direct replies
// (acks, pongs, errors) that must not reach the user's other devices.
func (r *Registry) Send(userID uuid.UUID, conn *websocket.Conn, data []byte) {
	r.cmdCh <- sendCmd{userID: userID, connection: conn, data: data}
}

// RecordPong marks the connection alive after a pong envelope.
func (r *Registry) RecordPong(userID uuid.UUID, conn *websocket.Conn) {
	r.cmdCh <- pongCmd{userID: userID, connection: conn}
}

// ClientCount returns the number of connections for a user.
// Returns -1 if the command times out.
func (r *Registry) ClientCount(userID uuid.UUID) int {
	replyCh := make(chan int, 1)
	r.cmdCh <- clientCountCmd{userID: userID, replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// TotalClients returns the number of connections across all users.
// Returns -1 if the command times out.
func (r *Registry) TotalClients() int {
	replyCh := make(chan int, 1)
	r.cmdCh <- totalClientsCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("TotalClients timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the registry, closing all client connections.
// Blocks until the registry goroutine has exited or timeout is reached.
func (r *Registry) Stop() {
	r.cmdCh <- stopRegistryCmd{}

	timeout := r.clock.NewTimer(r.stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Registry stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Registry stop timeout exceeded, forcing exit",
			"timeout", r.stopTimeout,
		)
		metrics.RegistryStopTimeoutsTotal.Inc()

		close(r.done)

		slog.Error("Registry goroutine may have leaked",
			"active_users", len(r.activeClients),
		)
	}
}

func (r *Registry) run() {
	// Panic recovery wrapper
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Registry panic recovered", "panic", rec)
			metrics.RegistryPanicsTotal.Inc()

			r.closeAllClients("registry panic")
		}
	}()

	defer close(r.done)

	// Track command channel depth every second
	depthTicker := r.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(r.cmdCh)
			metrics.RegistryCommandChannelDepth.Set(float64(depth))

			if depth > 200 { // 80% of 256
				slog.Warn("Command channel near capacity",
					"depth", depth,
					"capacity", cap(r.cmdCh),
				)
			}

		case cmd := <-r.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				r.handleRegister(c)
			case unregisterCmd:
				r.handleUnregister(c)
			case broadcastCmd:
				r.handleBroadcast(c)
			case sendCmd:
				r.handleSend(c)
			case pongCmd:
				r.handlePong(c)
			case clientCountCmd:
				c.replyChannel <- len(r.activeClients[c.userID])
			case totalClientsCmd:
				total := 0
				for _, clients := range r.activeClients {
					total += len(clients)
				}
				c.replyChannel <- total
			case stopRegistryCmd:
				r.handleStop()
				return
			default:
				slog.Warn("Registry received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (r *Registry) handleRegister(c registerCmd) {
	clients, exists := r.activeClients[c.userID]
	if !exists {
		clients = make(userClients)
		r.activeClients[c.userID] = clients
	}

	// Re-registering an existing connection must not spawn a second
	// writer; two heartbeat tickers would race on one connection.
	if _, registered := clients[c.connection]; registered {
		slog.Debug("Client already registered", "user_id", c.userID.String())
		c.errorChannel <- nil
		return
	}

	if len(clients) >= r.maxClientsPerUser {
		slog.Warn("Rejecting client: max connections reached", "user_id", c.userID.String(), "max_connections", r.maxClientsPerUser)
		metrics.WebSocketConnectionsRejected.WithLabelValues("user_limit").Inc()
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max connections per user (%d) reached", r.maxClientsPerUser)
		return
	}

	cw := newClientWriter(c.connection, r.clock, r.pingInterval, r.pongTimeout)
	clients[c.connection] = cw

	metrics.RegistryActiveUsers.Set(float64(len(r.activeClients)))
	metrics.WebSocketConnectionsCurrent.Inc()

	slog.Debug("Client registered", "user_id", c.userID.String(), "total_connections", len(clients))
	c.errorChannel <- nil
}

func (r *Registry) handleUnregister(c unregisterCmd) {
	clients, exists := r.activeClients[c.userID]
	if !exists {
		return
	}

	cw, exists := clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, c.connection)

	metrics.WebSocketConnectionsCurrent.Dec()

	if len(clients) == 0 {
		delete(r.activeClients, c.userID)
		metrics.RegistryActiveUsers.Set(float64(len(r.activeClients)))
		slog.Info("Last connection closed", "user_id", c.userID.String())
	} else {
		slog.Debug("Client unregistered", "user_id", c.userID.String(), "remaining_connections", len(clients))
	}
}

func (r *Registry) handleBroadcast(c broadcastCmd) {
	clients, exists := r.activeClients[c.userID]
	if !exists {
		metrics.BroadcastFanout.Observe(0)
		return
	}

	var slow []*websocket.Conn
	sent := 0
	for conn, writer := range clients {
		if conn == c.exclude {
			continue
		}
		select {
		case writer.sendChannel <- c.data:
			sent++
		default:
			slow = append(slow, conn)
		}
	}
	metrics.BroadcastFanout.Observe(float64(sent))

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "user_id", c.userID.String())
		metrics.RegistrySlowClientsEvicted.Inc()
		r.handleUnregister(unregisterCmd{userID: c.userID, connection: conn})
	}
}

func (r *Registry) handleSend(c sendCmd) {
	clients, exists := r.activeClients[c.userID]
	if !exists {
		return
	}

	writer, exists := clients[c.connection]
	if !exists {
		return
	}

	select {
	case writer.sendChannel <- c.data:
	default:
		slog.Warn("Disconnecting slow client", "user_id", c.userID.String())
		metrics.RegistrySlowClientsEvicted.Inc()
		r.handleUnregister(unregisterCmd{userID: c.userID, connection: c.connection})
	}
}

func (r *Registry) handlePong(c pongCmd) {
	clients, exists := r.activeClients[c.userID]
	if !exists {
		return
	}
	if writer, exists := clients[c.connection]; exists {
		writer.recordPong()
	}
}

func (r *Registry) handleStop() {
	totalClients := 0
	for _, clients := range r.activeClients {
		totalClients += len(clients)
	}

	slog.Info("Registry shutting down", "users", len(r.activeClients), "total_connections", totalClients)

	r.closeAllClients("Server shutting down")

	slog.Info("Registry shutdown complete", "disconnected_clients", totalClients)
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (r *Registry) closeAllClients(reason string) {
	for userID, clients := range r.activeClients {
		for _, cw := range clients {
			cw.stopGraceful(reason)
		}
		delete(r.activeClients, userID)
	}
	metrics.RegistryActiveUsers.Set(0)
	metrics.WebSocketConnectionsCurrent.Set(0)
}
