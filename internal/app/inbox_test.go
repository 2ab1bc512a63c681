package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/websocket"
)

func captureIdea(t *testing.T, h *testHarness, userID uuid.UUID, content string) *domain.InboxItem {
	t.Helper()
	item, err := h.service.CreateInboxItem(context.Background(), userID, InboxInput{
		Content:  content,
		Category: domain.CategoryIdea,
		Priority: domain.PriorityP3,
		Status:   domain.StatusPending,
	})
	require.NoError(t, err)
	return item
}

func TestCreateInboxItem_Broadcasts(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()

	item := captureIdea(t, h, userID, "try pomodoro blocks")
	assert.NotEqual(t, uuid.Nil, item.ID)

	got := lastEnvelope(t, h.gateway)
	assert.Equal(t, userID, got.userID)
	assert.Equal(t, websocket.TypeInboxUpdate, got.env.Type)
	assert.Equal(t, ActionCreated, got.env.Payload["action"])

	payload, ok := got.env.Payload["item"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "try pomodoro blocks", payload["content"])
	assert.Equal(t, string(domain.StatusPending), payload["status"])
}

func TestUpdateInboxItem_PartialPatch(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	item := captureIdea(t, h, userID, "try pomodoro blocks")

	p1 := domain.PriorityP1
	done := domain.StatusDone
	updated, err := h.service.UpdateInboxItem(context.Background(), userID, item.ID, InboxPatch{
		Priority: &p1,
		Status:   &done,
	})
	require.NoError(t, err)
	assert.Equal(t, "try pomodoro blocks", updated.Content)
	assert.Equal(t, domain.PriorityP1, updated.Priority)
	assert.Equal(t, domain.StatusDone, updated.Status)

	got := lastEnvelope(t, h.gateway)
	assert.Equal(t, ActionUpdated, got.env.Payload["action"])

	_, err = h.service.UpdateInboxItem(context.Background(), uuid.New(), item.ID, InboxPatch{Priority: &p1})
	assert.ErrorIs(t, err, domain.ErrInboxItemNotFound)
}

func TestDeleteInboxItem_Broadcasts(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	item := captureIdea(t, h, userID, "try pomodoro blocks")

	err := h.service.DeleteInboxItem(context.Background(), uuid.New(), item.ID)
	assert.ErrorIs(t, err, domain.ErrInboxItemNotFound)

	require.NoError(t, h.service.DeleteInboxItem(context.Background(), userID, item.ID))

	got := lastEnvelope(t, h.gateway)
	assert.Equal(t, ActionDeleted, got.env.Payload["action"])
	assert.Equal(t, item.ID.String(), got.env.Payload["item_id"])

	_, err = h.service.GetInboxItem(context.Background(), userID, item.ID)
	assert.ErrorIs(t, err, domain.ErrInboxItemNotFound)
}

func TestListInboxItems_FilterLogic(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	ctx := context.Background()

	mk := func(category domain.InboxCategory, priority domain.InboxPriority) {
		_, err := h.service.CreateInboxItem(ctx, userID, InboxInput{
			Content:  "item",
			Category: category,
			Priority: priority,
			Status:   domain.StatusPending,
		})
		require.NoError(t, err)
	}
	mk(domain.CategoryTodo, domain.PriorityP1)
	mk(domain.CategoryIdea, domain.PriorityP3)
	mk(domain.CategoryNote, domain.PriorityP5)

	// AND: TODO with priority 1.
	items, err := h.service.ListInboxItems(ctx, userID, domain.InboxFilter{
		Categories: []domain.InboxCategory{domain.CategoryTodo},
		Priorities: []domain.InboxPriority{domain.PriorityP1},
		Logic:      domain.FilterAnd,
	}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// OR: TODO or priority 5.
	items, err = h.service.ListInboxItems(ctx, userID, domain.InboxFilter{
		Categories: []domain.InboxCategory{domain.CategoryTodo},
		Priorities: []domain.InboxPriority{domain.PriorityP5},
		Logic:      domain.FilterOr,
	}, 0, 100)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Priority range, AND with nothing else.
	minP := domain.PriorityP2
	maxP := domain.PriorityP4
	items, err = h.service.ListInboxItems(ctx, userID, domain.InboxFilter{
		PriorityMin: &minP,
		PriorityMax: &maxP,
		Logic:       domain.FilterAnd,
	}, 0, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.PriorityP3, items[0].Priority)

	// The multi-select list wins over the range when both are present.
	items, err = h.service.ListInboxItems(ctx, userID, domain.InboxFilter{
		Priorities:  []domain.InboxPriority{domain.PriorityP5},
		PriorityMin: &minP,
		PriorityMax: &maxP,
		Logic:       domain.FilterAnd,
	}, 0, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.PriorityP5, items[0].Priority)
}

func TestListInboxItems_Pagination(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	ctx := context.Background()

	for range 5 {
		captureIdea(t, h, userID, "item")
		h.clock.Advance(time.Second)
	}

	page, err := h.service.ListInboxItems(ctx, userID, domain.InboxFilter{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first.
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, err := h.service.ListInboxItems(ctx, userID, domain.InboxFilter{}, 4, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	empty, err := h.service.ListInboxItems(ctx, userID, domain.InboxFilter{}, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBulkUpdateInboxStatus_SkipsForeignItems(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	ctx := context.Background()

	mine1 := captureIdea(t, h, userID, "one")
	mine2 := captureIdea(t, h, userID, "two")
	theirs := captureIdea(t, h, uuid.New(), "not yours")

	before := len(h.gateway.snapshot())
	updated, err := h.service.BulkUpdateInboxStatus(ctx, userID,
		[]uuid.UUID{mine1.ID, mine2.ID, theirs.ID, uuid.New()}, domain.StatusDone)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, item := range updated {
		assert.Equal(t, domain.StatusDone, item.Status)
	}

	// One broadcast per updated item, none for the skipped IDs.
	assert.Len(t, h.gateway.snapshot(), before+2)

	untouched, err := h.service.GetInboxItem(ctx, theirs.UserID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, untouched.Status)
}

func TestArchiveInboxItems(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()

	item := captureIdea(t, h, userID, "old thought")

	archived, err := h.service.ArchiveInboxItems(context.Background(), userID, []uuid.UUID{item.ID})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, domain.StatusArchived, archived[0].Status)
}

func TestConvertInboxItemToEvent(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	ctx := context.Background()

	item := captureIdea(t, h, userID, "plan the offsite")

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	event, updatedItem, err := h.service.ConvertInboxItemToEvent(ctx, userID, item.ID, EventInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)

	// The item's content becomes the title when none is given.
	assert.Equal(t, "plan the offsite", event.Title)
	assert.Equal(t, item.ID.String(), event.Metadata[metadataInboxSource])
	assert.Equal(t, domain.StatusScheduled, updatedItem.Status)

	// Both the new event and the item change were broadcast.
	var sawEvent, sawItem bool
	for _, sent := range h.gateway.snapshot() {
		switch sent.env.Type {
		case websocket.TypeEventUpdate:
			sawEvent = true
		case websocket.TypeInboxUpdate:
			if sent.env.Payload["action"] == ActionUpdated {
				sawItem = true
			}
		}
	}
	assert.True(t, sawEvent)
	assert.True(t, sawItem)
}

func TestConvertInboxItemToEvent_ExplicitTitleWins(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()

	item := captureIdea(t, h, userID, "plan the offsite")

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	event, _, err := h.service.ConvertInboxItemToEvent(context.Background(), userID, item.ID, EventInput{
		Title:     "offsite planning session",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "offsite planning session", event.Title)
}

func TestConvertInboxItemToEvent_ConflictLeavesItemPending(t *testing.T) {
	h := newTestHarness()
	userID := uuid.New()
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, err := h.service.CreateEvent(ctx, userID, deepWorkInput(start, start.Add(time.Hour)))
	require.NoError(t, err)

	item := captureIdea(t, h, userID, "plan the offsite")

	_, _, err = h.service.ConvertInboxItemToEvent(ctx, userID, item.ID, EventInput{
		StartTime: start.Add(30 * time.Minute),
		EndTime:   start.Add(90 * time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrSchedulingConflict)

	unchanged, err := h.service.GetInboxItem(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, unchanged.Status)
}

func TestConvertInboxItemToEvent_UnknownItem(t *testing.T) {
	h := newTestHarness()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, _, err := h.service.ConvertInboxItemToEvent(context.Background(), uuid.New(), uuid.New(), EventInput{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInboxItemNotFound)
}
