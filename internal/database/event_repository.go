package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// eventColumns must match the Scan order in scanEvent.
const eventColumns = `id, user_id, title, description, start_time, end_time, category, is_all_day, is_recurring, metadata, created_at, updated_at`

// EventRepo implements domain.EventRepository backed by PostgreSQL.
//
// Create and Update serialize all event writes of one user with a
// transaction-scoped advisory lock, then run the overlap check and the
// write inside the same transaction. Two concurrent mutations of the same
// user can never both pass the check.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo creates an EventRepo from the shared connection pool.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var event domain.Event
	err := row.Scan(
		&event.ID, &event.UserID, &event.Title, &event.Description,
		&event.StartTime, &event.EndTime, &event.Category,
		&event.IsAllDay, &event.IsRecurring, &event.Metadata,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.StartTime = event.StartTime.UTC()
	event.EndTime = event.EndTime.UTC()
	return &event, nil
}

// lockUserEvents takes the per-user advisory lock for the duration of the
// transaction.
func lockUserEvents(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID)
	if err != nil {
		return fmt.Errorf("failed to lock user events: %w", err)
	}
	return nil
}

// hasOverlap runs the half-open interval overlap check. Events touching
// exactly at a boundary do not overlap. exclude skips one event ID, used
// by Update so an event never conflicts with itself.
func hasOverlap(ctx context.Context, tx pgx.Tx, event *domain.Event, exclude *uuid.UUID) (bool, error) {
	var overlap bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE user_id = $1
			  AND start_time < $3
			  AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`, event.UserID, event.StartTime, event.EndTime, exclude).Scan(&overlap)
	if err != nil {
		return false, fmt.Errorf("failed to check event overlap: %w", err)
	}
	return overlap, nil
}

func (r *EventRepo) Create(ctx context.Context, event *domain.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := lockUserEvents(ctx, tx, event.UserID); err != nil {
		return err
	}

	overlap, err := hasOverlap(ctx, tx, event, nil)
	if err != nil {
		return err
	}
	if overlap {
		metrics.SchedulingConflictsTotal.Inc()
		return domain.ErrSchedulingConflict
	}

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	created, err := scanEvent(tx.QueryRow(ctx, `
		INSERT INTO events (user_id, title, description, start_time, end_time, category, is_all_day, is_recurring, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING `+eventColumns,
		event.UserID, event.Title, event.Description, event.StartTime, event.EndTime,
		event.Category, event.IsAllDay, event.IsRecurring, metadata))
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	*event = *created
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	event, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return event, nil
}

func (r *EventRepo) List(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []any{userID}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(` AND end_time > $%d`, len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(` AND start_time < $%d`, len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *EventRepo) Update(ctx context.Context, event *domain.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := lockUserEvents(ctx, tx, event.UserID); err != nil {
		return err
	}

	overlap, err := hasOverlap(ctx, tx, event, &event.ID)
	if err != nil {
		return err
	}
	if overlap {
		metrics.SchedulingConflictsTotal.Inc()
		return domain.ErrSchedulingConflict
	}

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	updated, err := scanEvent(tx.QueryRow(ctx, `
		UPDATE events
		SET title = $3, description = $4, start_time = $5, end_time = $6,
		    category = $7, is_all_day = $8, is_recurring = $9, metadata = $10,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+eventColumns,
		event.ID, event.UserID, event.Title, event.Description, event.StartTime,
		event.EndTime, event.Category, event.IsAllDay, event.IsRecurring, metadata))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	*event = *updated
	return nil
}

func (r *EventRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
