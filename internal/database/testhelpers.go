package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// CreateTestUser is a helper that creates a user with default values for
// testing. The suffix keeps usernames and emails unique per call.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, suffix string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool)
	user := &domain.User{
		Username:     "testuser_" + suffix,
		Email:        "testuser_" + suffix + "@example.com",
		PasswordHash: "$2a$10$notarealhashbutgoodenoughfortests",
	}

	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	return user
}

// CreateTestEvent creates an event for the user covering the given interval.
func CreateTestEvent(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, title string, start, end time.Time) *domain.Event {
	t.Helper()

	repo := NewEventRepo(pool)
	event := &domain.Event{
		UserID:    userID,
		Title:     title,
		StartTime: start,
		EndTime:   end,
	}

	err := repo.Create(context.Background(), event)
	require.NoError(t, err)

	return event
}

// CreateTestInboxItem creates a pending inbox item with the given content.
func CreateTestInboxItem(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, content string, category domain.InboxCategory, priority domain.InboxPriority) *domain.InboxItem {
	t.Helper()

	repo := NewInboxRepo(pool)
	item := &domain.InboxItem{
		UserID:   userID,
		Content:  content,
		Category: category,
		Priority: priority,
		Status:   domain.StatusPending,
	}

	err := repo.Create(context.Background(), item)
	require.NoError(t, err)

	return item
}
