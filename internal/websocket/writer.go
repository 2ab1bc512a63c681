package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	messageBufferSize = 16
)

// CloseHeartbeatTimeout is the close code sent when a client stops
// answering heartbeat pings.
const CloseHeartbeatTimeout = 4000

// pingEnvelope is the heartbeat frame, precomputed since it never changes.
var pingEnvelope = []byte(`{"type":"ping","payload":{}}`)

type clientWriter struct {
	connection   *websocket.Conn
	clock        clockwork.Clock
	sendChannel  chan []byte
	doneChannel  chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	pingInterval time.Duration
	pongTimeout  time.Duration
	lastPong     time.Time
	pongMutex    sync.Mutex
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock, pingInterval, pongTimeout time.Duration) *clientWriter {
	cw := &clientWriter{
		connection:   connection,
		clock:        clock,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		lastPong:     clock.Now(),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(cw.pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			start := cw.clock.Now()
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			if cw.pongOverdue() {
				metrics.HeartbeatTimeouts.Inc()
				cw.expire()
				return
			}

			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, pingEnvelope); err != nil {
				// Ping failed - client likely disconnected
				metrics.HeartbeatPingFailures.Inc()
				return
			}
			metrics.HeartbeatPingsSent.Inc()
		case <-cw.doneChannel:
			return
		}
	}
}

// recordPong marks the connection alive. Only pong envelopes reset the
// heartbeat; other client traffic does not count as liveness.
func (cw *clientWriter) recordPong() {
	cw.pongMutex.Lock()
	defer cw.pongMutex.Unlock()
	cw.lastPong = cw.clock.Now()
}

func (cw *clientWriter) pongOverdue() bool {
	cw.pongMutex.Lock()
	defer cw.pongMutex.Unlock()
	return cw.clock.Since(cw.lastPong) >= cw.pongTimeout
}

// expire closes the connection with the heartbeat timeout code. Called
// from the run goroutine only, so the close frame write cannot race a
// concurrent message write. The read loop observes the closed connection
// and unregisters the client.
func (cw *clientWriter) expire() {
	closeMsg := websocket.FormatCloseMessage(CloseHeartbeatTimeout, "heartbeat timeout")
	cw.updateWriteDeadline()
	_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
	_ = cw.connection.Close()
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		// Signal the run goroutine to exit first
		close(cw.doneChannel)

		// Wait for run goroutine to exit before writing close frame
		// This prevents concurrent writes to the WebSocket connection
		cw.wg.Wait()

		// Now it's safe to write the close frame (run goroutine has exited)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)

		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	deadline := cw.clock.Now().Add(writeDeadline)
	_ = cw.connection.SetWriteDeadline(deadline)
}
