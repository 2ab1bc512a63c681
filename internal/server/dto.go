package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

type eventResponse struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Category    string         `json:"category"`
	IsAllDay    bool           `json:"is_all_day"`
	IsRecurring bool           `json:"is_recurring"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newEventResponse(event *domain.Event) eventResponse {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return eventResponse{
		ID:          event.ID,
		UserID:      event.UserID,
		Title:       event.Title,
		Description: event.Description,
		StartTime:   event.StartTime.UTC(),
		EndTime:     event.EndTime.UTC(),
		Category:    event.Category,
		IsAllDay:    event.IsAllDay,
		IsRecurring: event.IsRecurring,
		Metadata:    metadata,
		CreatedAt:   event.CreatedAt.UTC(),
		UpdatedAt:   event.UpdatedAt.UTC(),
	}
}

func newEventListResponse(events []domain.Event) []eventResponse {
	out := make([]eventResponse, len(events))
	for i := range events {
		out[i] = newEventResponse(&events[i])
	}
	return out
}

type inboxItemResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newInboxItemResponse(item *domain.InboxItem) inboxItemResponse {
	return inboxItemResponse{
		ID:        item.ID,
		UserID:    item.UserID,
		Content:   item.Content,
		Category:  string(item.Category),
		Priority:  int(item.Priority),
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt.UTC(),
		UpdatedAt: item.UpdatedAt.UTC(),
	}
}

func newInboxListResponse(items []domain.InboxItem) []inboxItemResponse {
	out := make([]inboxItemResponse, len(items))
	for i := range items {
		out[i] = newInboxItemResponse(&items[i])
	}
	return out
}

// clientTimeLayouts accepts RFC 3339 instants and offset-less local
// forms, which are interpreted as UTC.
var clientTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseClientTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.ValidationError(field + " is required")
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range clientTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.ValidationError(field + " is not a valid timestamp")
}
