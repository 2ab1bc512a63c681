package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

func storedEvent(userID uuid.UUID) *domain.Event {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return &domain.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Deep work",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Category:  "focus",
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func TestCreateEvent_Created(t *testing.T) {
	userID := uuid.New()
	event := storedEvent(userID)
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		createEventFn: func(ctx context.Context, uid uuid.UUID, input app.EventInput) (*domain.Event, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, "Deep work", input.Title)
			assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), input.StartTime)
			return event, nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/events", testToken, map[string]any{
		"title":      "Deep work",
		"start_time": "2025-06-02T09:00:00Z",
		"end_time":   "2025-06-02T11:00:00Z",
		"category":   "focus",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp eventResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, event.ID, resp.ID)
	assert.Equal(t, "Deep work", resp.Title)
	assert.NotNil(t, resp.Metadata)
}

func TestCreateEvent_AcceptsNaiveTimestamps(t *testing.T) {
	userID := uuid.New()
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		createEventFn: func(ctx context.Context, uid uuid.UUID, input app.EventInput) (*domain.Event, error) {
			// Offset-less timestamps are read as UTC.
			assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), input.StartTime)
			assert.Equal(t, time.UTC, input.StartTime.Location())
			return storedEvent(uid), nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/events", testToken, map[string]any{
		"title":      "Deep work",
		"start_time": "2025-06-02T09:30:00",
		"end_time":   "2025-06-02T11:00:00",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateEvent_Validation(t *testing.T) {
	mock := &mockAppService{verifyTokenFn: allowToken(uuid.New())}
	srv := newTestServer(t, mock, nil)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"start_time": "2025-06-02T09:00:00Z", "end_time": "2025-06-02T10:00:00Z"}},
		{"missing start", map[string]any{"title": "x", "end_time": "2025-06-02T10:00:00Z"}},
		{"garbage timestamp", map[string]any{"title": "x", "start_time": "yesterday", "end_time": "2025-06-02T10:00:00Z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/events", testToken, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateEvent_SchedulingConflict(t *testing.T) {
	mock := &mockAppService{
		verifyTokenFn: allowToken(uuid.New()),
		createEventFn: func(ctx context.Context, uid uuid.UUID, input app.EventInput) (*domain.Event, error) {
			return nil, domain.ErrSchedulingConflict
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/events", testToken, map[string]any{
		"title":      "Deep work",
		"start_time": "2025-06-02T09:00:00Z",
		"end_time":   "2025-06-02T11:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetEvent(t *testing.T) {
	userID := uuid.New()
	event := storedEvent(userID)
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		getEventFn: func(ctx context.Context, uid, eventID uuid.UUID) (*domain.Event, error) {
			assert.Equal(t, event.ID, eventID)
			return event, nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events/"+event.ID.String(), testToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, event.ID, resp.ID)
}

func TestGetEvent_InvalidID(t *testing.T) {
	mock := &mockAppService{verifyTokenFn: allowToken(uuid.New())}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events/not-a-uuid", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEvent_Forbidden(t *testing.T) {
	mock := &mockAppService{
		verifyTokenFn: allowToken(uuid.New()),
		getEventFn: func(ctx context.Context, uid, eventID uuid.UUID) (*domain.Event, error) {
			return nil, domain.ErrForbidden
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events/"+uuid.NewString(), testToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListEvents_QueryFilter(t *testing.T) {
	userID := uuid.New()
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		listEventsFn: func(ctx context.Context, uid uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
			require.NotNil(t, filter.StartDate)
			require.NotNil(t, filter.EndDate)
			assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *filter.StartDate)
			assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), *filter.EndDate)
			assert.Equal(t, "focus", filter.Category)
			return []domain.Event{*storedEvent(uid)}, nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events?start_date=2025-06-01&end_date=2025-06-08&category=focus", testToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []eventResponse
	decodeJSON(t, rec, &resp)
	assert.Len(t, resp, 1)
}

func TestListEvents_EmptyResult(t *testing.T) {
	mock := &mockAppService{
		verifyTokenFn: allowToken(uuid.New()),
		listEventsFn: func(ctx context.Context, uid uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
			return nil, nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events", testToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateEvent_Patch(t *testing.T) {
	userID := uuid.New()
	event := storedEvent(userID)
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		updateEventFn: func(ctx context.Context, uid, eventID uuid.UUID, patch app.EventPatch) (*domain.Event, error) {
			require.NotNil(t, patch.Title)
			assert.Equal(t, "Renamed", *patch.Title)
			require.NotNil(t, patch.StartTime)
			assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), *patch.StartTime)
			assert.Nil(t, patch.EndTime)
			event.Title = *patch.Title
			return event, nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodPut, "/api/events/"+event.ID.String(), testToken, map[string]any{
		"title":      "Renamed",
		"start_time": "2025-06-02T10:00:00Z",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "Renamed", resp.Title)
}

func TestUpdateEvent_EmptyTitleRejected(t *testing.T) {
	mock := &mockAppService{verifyTokenFn: allowToken(uuid.New())}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodPut, "/api/events/"+uuid.NewString(), testToken, map[string]any{
		"title": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEvent(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	mock := &mockAppService{
		verifyTokenFn: allowToken(userID),
		deleteEventFn: func(ctx context.Context, uid, id uuid.UUID) error {
			assert.Equal(t, eventID, id)
			return nil
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodDelete, "/api/events/"+eventID.String(), testToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteEvent_NotFound(t *testing.T) {
	mock := &mockAppService{
		verifyTokenFn: allowToken(uuid.New()),
		deleteEventFn: func(ctx context.Context, uid, id uuid.UUID) error {
			return domain.ErrEventNotFound
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodDelete, "/api/events/"+uuid.NewString(), testToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventRoutes_InternalError(t *testing.T) {
	mock := &mockAppService{
		verifyTokenFn: allowToken(uuid.New()),
		listEventsFn: func(ctx context.Context, uid uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}
	srv := newTestServer(t, mock, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/events", testToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
