package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket Connection Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks total WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/auth_failed/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketConnectionsRejected tracks rejected connection attempts by reason
	WebSocketConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Total WebSocket connections rejected by reason (rate_limit/ip_limit/global_limit/user_limit)",
		},
		[]string{"reason"},
	)

	// WebSocketConnectionDuration tracks WebSocket connection duration
	WebSocketConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_connection_duration_seconds",
			Help:    "WebSocket connection duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketConnectionCapacity tracks current connection capacity utilization as percentage
	WebSocketConnectionCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connection_capacity_percent",
			Help: "Current WebSocket connection capacity utilization (0-100%)",
		},
	)

	// WebSocketUniqueIPs tracks number of unique IP addresses with active connections
	WebSocketUniqueIPs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_unique_ips",
			Help: "Number of unique IP addresses with active WebSocket connections",
		},
	)
)

// Heartbeat Metrics
var (
	// HeartbeatPingsSent tracks application-level ping envelopes sent
	HeartbeatPingsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_pings_sent_total",
			Help: "Total heartbeat ping envelopes sent to clients",
		},
	)

	// HeartbeatPingFailures tracks ping envelope write failures
	HeartbeatPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_ping_failures_total",
			Help: "Total heartbeat ping write failures (client likely disconnected)",
		},
	)

	// HeartbeatTimeouts tracks connections closed for missing pong responses
	HeartbeatTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_timeouts_total",
			Help: "Total connections closed because no pong arrived within the timeout",
		},
	)
)

// Registry Metrics
var (
	// RegistryActiveUsers tracks number of users with at least one connection
	RegistryActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_users",
			Help: "Number of users with at least one active WebSocket connection",
		},
	)

	// RegistrySlowClientsEvicted tracks number of slow clients evicted
	RegistrySlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)

	// RegistryPanicsTotal tracks registry panic recoveries
	RegistryPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_panics_total",
			Help: "Total registry panic recoveries",
		},
	)

	// RegistryCommandChannelDepth tracks current command channel depth
	RegistryCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_command_channel_depth",
			Help: "Current command channel depth",
		},
	)

	// RegistryStopTimeoutsTotal tracks registry stops that exceeded timeout
	RegistryStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_stop_timeouts_total",
			Help: "Registry stops that exceeded timeout",
		},
	)
)

// Message Routing Metrics
var (
	// EnvelopesReceived tracks inbound envelopes by type
	EnvelopesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envelopes_received_total",
			Help: "Total inbound envelopes by type",
		},
		[]string{"type"},
	)

	// EnvelopeErrors tracks malformed or unroutable inbound messages by detail
	EnvelopeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envelope_errors_total",
			Help: "Total inbound message errors by detail (invalid_json/invalid_message/unknown_type/internal_error)",
		},
		[]string{"detail"},
	)

	// BroadcastsTotal tracks fan-out broadcasts by origin (local/remote)
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Total user broadcasts by origin (local/remote)",
		},
		[]string{"origin"},
	)

	// BroadcastFanout tracks how many connections each broadcast reached
	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_fanout_connections",
			Help:    "Number of connections reached per broadcast",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50},
		},
	)
)

// Scheduling Metrics
var (
	// SchedulingConflictsTotal tracks event mutations rejected for overlapping intervals
	SchedulingConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduling_conflicts_total",
			Help: "Total event create/update operations rejected due to interval overlap",
		},
	)

	// InboxConversionsTotal tracks inbox items converted into events
	InboxConversionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_conversions_total",
			Help: "Total inbox items converted into scheduled events",
		},
	)
)

// Redis Pub/Sub Metrics
var (
	// PubSubMessagesPublished tracks cross-instance messages published by status
	PubSubMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_published_total",
			Help: "Total pub/sub messages published by status (ok/error/breaker_open)",
		},
		[]string{"status"},
	)

	// PubSubMessagesReceived tracks pub/sub messages received by channel
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Total pub/sub messages received by channel",
		},
		[]string{"channel"},
	)

	// PubSubReconnectionsTotal tracks pub/sub reconnection attempts
	PubSubReconnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubsub_reconnections_total",
			Help: "Total pub/sub reconnection attempts after disconnect",
		},
	)

	// PubSubSubscriptionActive tracks whether the pub/sub subscription is active (1) or disconnected (0)
	PubSubSubscriptionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pubsub_subscription_active",
			Help: "1 if pub/sub subscription is active, 0 if disconnected",
		},
	)

	// RedisOpsTotal tracks Redis command executions by operation and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by command name and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis command duration by operation
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed Redis connection attempts
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection establishment failures",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBConnectionsCurrent tracks current database connections by state
	DBConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_current",
			Help: "Current database connections by state (active/idle)",
		},
		[]string{"state"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Auth Metrics
var (
	// AuthAttemptsTotal tracks login attempts by result
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total login attempts by result (success/invalid_credentials/error)",
		},
		[]string{"result"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Request Metrics
// Note: These are automatically provided by echoprometheus middleware
// - http_requests_total{method, path, status}
// - http_request_duration_seconds{method, path}

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
