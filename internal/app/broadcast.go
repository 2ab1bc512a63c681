package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/websocket"
)

// Change actions carried in update envelopes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LocalGateway fans envelopes out to the user's connections on this
// instance.
type LocalGateway interface {
	Broadcast(userID uuid.UUID, env websocket.Envelope) error
}

// RemotePublisher relays envelopes to sibling instances. Optional.
type RemotePublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, env websocket.Envelope) error
}

// Broadcaster turns committed mutations into update envelopes and
// delivers them locally and, when configured, cross-instance. Broadcast
// failures are logged and never fail the mutation that triggered them.
type Broadcaster struct {
	local  LocalGateway
	remote RemotePublisher
}

// NewBroadcaster creates a Broadcaster. remote may be nil for
// single-instance deployments.
func NewBroadcaster(local LocalGateway, remote RemotePublisher) *Broadcaster {
	return &Broadcaster{local: local, remote: remote}
}

// EventChanged broadcasts a created or updated event with its full
// committed representation.
func (b *Broadcaster) EventChanged(ctx context.Context, action string, event *domain.Event) {
	b.deliver(ctx, event.UserID, websocket.Envelope{
		Type: websocket.TypeEventUpdate,
		Payload: map[string]any{
			"action": action,
			"event":  eventPayload(event),
		},
	})
}

// EventDeleted broadcasts an event deletion. Only the ID survives the
// delete, so that is all the payload carries.
func (b *Broadcaster) EventDeleted(ctx context.Context, userID, eventID uuid.UUID) {
	b.deliver(ctx, userID, websocket.Envelope{
		Type: websocket.TypeEventUpdate,
		Payload: map[string]any{
			"action":   ActionDeleted,
			"event_id": eventID.String(),
		},
	})
}

// InboxChanged broadcasts a created or updated inbox item.
func (b *Broadcaster) InboxChanged(ctx context.Context, action string, item *domain.InboxItem) {
	b.deliver(ctx, item.UserID, websocket.Envelope{
		Type: websocket.TypeInboxUpdate,
		Payload: map[string]any{
			"action": action,
			"item":   inboxPayload(item),
		},
	})
}

// InboxDeleted broadcasts an inbox item deletion.
func (b *Broadcaster) InboxDeleted(ctx context.Context, userID, itemID uuid.UUID) {
	b.deliver(ctx, userID, websocket.Envelope{
		Type: websocket.TypeInboxUpdate,
		Payload: map[string]any{
			"action":  ActionDeleted,
			"item_id": itemID.String(),
		},
	})
}

func (b *Broadcaster) deliver(ctx context.Context, userID uuid.UUID, env websocket.Envelope) {
	if b == nil {
		return
	}

	if b.local != nil {
		if err := b.local.Broadcast(userID, env); err != nil {
			slog.Warn("local broadcast failed", "user_id", userID, "type", env.Type, "error", err)
		}
	}

	if b.remote != nil {
		if err := b.remote.Publish(ctx, userID, env); err != nil {
			slog.Warn("cross-instance publish failed", "user_id", userID, "type", env.Type, "error", err)
		}
	}
}

func eventPayload(event *domain.Event) map[string]any {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return map[string]any{
		"id":           event.ID.String(),
		"user_id":      event.UserID.String(),
		"title":        event.Title,
		"description":  event.Description,
		"start_time":   event.StartTime.UTC().Format(time.RFC3339Nano),
		"end_time":     event.EndTime.UTC().Format(time.RFC3339Nano),
		"category":     event.Category,
		"is_all_day":   event.IsAllDay,
		"is_recurring": event.IsRecurring,
		"metadata":     metadata,
		"created_at":   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":   event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func inboxPayload(item *domain.InboxItem) map[string]any {
	return map[string]any{
		"id":         item.ID.String(),
		"user_id":    item.UserID.String(),
		"content":    item.Content,
		"category":   string(item.Category),
		"priority":   int(item.Priority),
		"status":     string(item.Status),
		"created_at": item.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
