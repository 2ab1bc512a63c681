package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/schedule"
)

// EventInput carries the caller-supplied fields of a new event.
type EventInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Category    string
	IsAllDay    bool
	IsRecurring bool
	Metadata    map[string]any
}

// EventPatch carries the optional fields of an event change.
type EventPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Category    *string
	IsAllDay    *bool
	IsRecurring *bool
	Metadata    map[string]any
}

// CreateEvent validates the interval, runs the conflict-checked write,
// and broadcasts the committed event.
func (s *Service) CreateEvent(ctx context.Context, userID uuid.UUID, input EventInput) (*domain.Event, error) {
	start, end := schedule.NormalizeInterval(input.StartTime, input.EndTime, input.IsAllDay)
	if err := schedule.ValidateInterval(start, end); err != nil {
		return nil, err
	}

	event := &domain.Event{
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   start,
		EndTime:     end,
		Category:    input.Category,
		IsAllDay:    input.IsAllDay,
		IsRecurring: input.IsRecurring,
		Metadata:    input.Metadata,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.broadcaster.EventChanged(ctx, ActionCreated, event)
	return event, nil
}

// GetEvent returns an event owned by the user.
func (s *Service) GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

// ListEvents returns the user's events ordered by start time.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	return s.events.List(ctx, userID, filter)
}

// UpdateEvent applies a partial change, re-running interval validation
// and the conflict check, and broadcasts the committed event.
func (s *Service) UpdateEvent(ctx context.Context, userID, eventID uuid.UUID, patch EventPatch) (*domain.Event, error) {
	event, err := s.GetEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.StartTime != nil {
		event.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		event.EndTime = *patch.EndTime
	}
	if patch.Category != nil {
		event.Category = *patch.Category
	}
	if patch.IsAllDay != nil {
		event.IsAllDay = *patch.IsAllDay
	}
	if patch.IsRecurring != nil {
		event.IsRecurring = *patch.IsRecurring
	}
	if patch.Metadata != nil {
		event.Metadata = patch.Metadata
	}

	event.StartTime, event.EndTime = schedule.NormalizeInterval(event.StartTime, event.EndTime, event.IsAllDay)
	if err := schedule.ValidateInterval(event.StartTime, event.EndTime); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	s.broadcaster.EventChanged(ctx, ActionUpdated, event)
	return event, nil
}

// DeleteEvent removes an event owned by the user and broadcasts the
// deletion. Deletes never conflict.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID, userID); err != nil {
		return err
	}

	s.broadcaster.EventDeleted(ctx, userID, eventID)
	return nil
}
