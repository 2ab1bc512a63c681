package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByIdentifier looks a user up by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Update(ctx context.Context, user *User) error
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string) (*User, error)
}

// EventRepository persists calendar events. Create and Update run the
// interval-overlap check and the write as one atomic unit per user; both
// return ErrSchedulingConflict when the candidate interval overlaps an
// existing event owned by the same user.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, userID uuid.UUID, filter EventFilter) ([]Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// InboxRepository persists inbox items.
type InboxRepository interface {
	Create(ctx context.Context, item *InboxItem) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*InboxItem, error)
	List(ctx context.Context, userID uuid.UUID, filter InboxFilter, skip, limit int) ([]InboxItem, error)
	Update(ctx context.Context, item *InboxItem) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	BulkUpdateStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status InboxStatus) ([]InboxItem, error)
}
