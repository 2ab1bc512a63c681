package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/websocket"
)

// syncChannel carries every cross-instance broadcast.
const syncChannel = "sync:broadcast"

// resubscribeBackoff is the pause before re-establishing a lost
// subscription.
const resubscribeBackoff = time.Second

// SyncMessage is the wire format on the sync channel. Origin identifies
// the publishing instance so it can skip its own messages.
type SyncMessage struct {
	Origin   string             `json:"origin"`
	UserID   uuid.UUID          `json:"user_id"`
	Envelope websocket.Envelope `json:"envelope"`
}

// LocalBroadcaster delivers envelopes that arrived from other instances
// to local connections.
type LocalBroadcaster interface {
	BroadcastRemote(userID uuid.UUID, env websocket.Envelope) error
}

// Bridge relays broadcast envelopes between instances via Redis Pub/Sub.
type Bridge struct {
	rdb        *goredis.Client
	local      LocalBroadcaster
	clock      clockwork.Clock
	instanceID string
}

// NewBridge creates a Bridge with a fresh instance identity.
func NewBridge(client *Client, local LocalBroadcaster, clock clockwork.Clock) *Bridge {
	return &Bridge{
		rdb:        client.rdb,
		local:      local,
		clock:      clock,
		instanceID: uuid.NewString(),
	}
}

// InstanceID returns the identity stamped on published messages.
func (b *Bridge) InstanceID() string {
	return b.instanceID
}

// Publish sends a broadcast envelope to every instance, including this
// one. The subscriber side filters messages by origin.
func (b *Bridge) Publish(ctx context.Context, userID uuid.UUID, env websocket.Envelope) error {
	msg := SyncMessage{Origin: b.instanceID, UserID: userID, Envelope: env}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sync message: %w", err)
	}

	if err := b.rdb.Publish(ctx, syncChannel, data).Err(); err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) {
			status = "breaker_open"
		}
		metrics.PubSubMessagesPublished.WithLabelValues(status).Inc()
		return fmt.Errorf("failed to publish sync message: %w", err)
	}

	metrics.PubSubMessagesPublished.WithLabelValues("ok").Inc()
	return nil
}

// Run subscribes to the sync channel and re-delivers foreign broadcasts
// locally. It resubscribes after failures and blocks until ctx is
// cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		err := b.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		metrics.PubSubReconnectionsTotal.Inc()
		slog.Warn("sync subscription lost, reconnecting",
			"channel", syncChannel,
			"backoff", resubscribeBackoff,
			"error", err)

		select {
		case <-b.clock.After(resubscribeBackoff):
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) consume(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, syncChannel)
	defer func() {
		_ = sub.Close()
	}()

	// Confirm the subscription before reporting it active.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	metrics.PubSubSubscriptionActive.Set(1)
	defer metrics.PubSubSubscriptionActive.Set(0)

	slog.Info("sync subscription established", "channel", syncChannel, "instance_id", b.instanceID)

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription channel closed")
			}
			b.handleMessage(msg.Payload)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bridge) handleMessage(payload string) {
	metrics.PubSubMessagesReceived.WithLabelValues(syncChannel).Inc()

	var msg SyncMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		slog.Warn("invalid sync message", "error", err)
		return
	}

	if msg.Origin == b.instanceID {
		return
	}

	if err := b.local.BroadcastRemote(msg.UserID, msg.Envelope); err != nil {
		slog.Warn("failed to deliver remote broadcast",
			"user_id", msg.UserID,
			"type", msg.Envelope.Type,
			"error", err)
	}
}
