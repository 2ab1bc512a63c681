package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a user-owned calendar item. StartTime and EndTime are always
// stored in UTC and form the half-open interval [StartTime, EndTime).
// No two events owned by the same user may have overlapping intervals.
type Event struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Category    string
	IsAllDay    bool
	IsRecurring bool
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventFilter narrows ListEvents results. Zero values mean "no filter".
type EventFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
}
