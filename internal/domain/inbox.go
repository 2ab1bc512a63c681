package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InboxCategory classifies a quick-capture item.
type InboxCategory string

const (
	CategoryTodo InboxCategory = "TODO"
	CategoryIdea InboxCategory = "IDEA"
	CategoryNote InboxCategory = "NOTE"
)

// ParseInboxCategory validates a category string.
func ParseInboxCategory(s string) (InboxCategory, error) {
	switch c := InboxCategory(s); c {
	case CategoryTodo, CategoryIdea, CategoryNote:
		return c, nil
	}
	return "", fmt.Errorf("invalid inbox category %q", s)
}

// InboxPriority ranges from 1 (highest) to 5 (lowest).
type InboxPriority int

const (
	PriorityP1 InboxPriority = 1
	PriorityP2 InboxPriority = 2
	PriorityP3 InboxPriority = 3
	PriorityP4 InboxPriority = 4
	PriorityP5 InboxPriority = 5
)

// Valid reports whether the priority is within the closed 1..5 range.
func (p InboxPriority) Valid() bool { return p >= PriorityP1 && p <= PriorityP5 }

// InboxStatus tracks an item's lifecycle. Converting an item to an event
// moves it to StatusScheduled.
type InboxStatus string

const (
	StatusPending   InboxStatus = "PENDING"
	StatusScheduled InboxStatus = "SCHEDULED"
	StatusArchived  InboxStatus = "ARCHIVED"
	StatusDone      InboxStatus = "DONE"
)

// ParseInboxStatus validates a status string.
func ParseInboxStatus(s string) (InboxStatus, error) {
	switch st := InboxStatus(s); st {
	case StatusPending, StatusScheduled, StatusArchived, StatusDone:
		return st, nil
	}
	return "", fmt.Errorf("invalid inbox status %q", s)
}

// InboxItem is a quick-capture note that can later be converted into an
// Event.
type InboxItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Content   string
	Category  InboxCategory
	Priority  InboxPriority
	Status    InboxStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FilterLogic selects how multiple inbox filter clauses combine.
type FilterLogic string

const (
	FilterAnd FilterLogic = "AND"
	FilterOr  FilterLogic = "OR"
)

// InboxFilter narrows ListInboxItems results. The multi-select Priorities
// list takes precedence over PriorityMin/PriorityMax when non-empty.
type InboxFilter struct {
	Categories  []InboxCategory
	Statuses    []InboxStatus
	Priorities  []InboxPriority
	PriorityMin *InboxPriority
	PriorityMax *InboxPriority
	Logic       FilterLogic
}
