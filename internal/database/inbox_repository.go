package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// inboxColumns must match the Scan order in scanInboxItem.
const inboxColumns = `id, user_id, content, category, priority, status, created_at, updated_at`

// InboxRepo implements domain.InboxRepository backed by PostgreSQL.
type InboxRepo struct {
	pool *pgxpool.Pool
}

// NewInboxRepo creates an InboxRepo from the shared connection pool.
func NewInboxRepo(pool *pgxpool.Pool) *InboxRepo {
	return &InboxRepo{pool: pool}
}

func scanInboxItem(row pgx.Row) (*domain.InboxItem, error) {
	var item domain.InboxItem
	err := row.Scan(
		&item.ID, &item.UserID, &item.Content, &item.Category,
		&item.Priority, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *InboxRepo) Create(ctx context.Context, item *domain.InboxItem) error {
	created, err := scanInboxItem(r.pool.QueryRow(ctx, `
		INSERT INTO inbox_items (user_id, content, category, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+inboxColumns,
		item.UserID, item.Content, string(item.Category), int(item.Priority), string(item.Status)))
	if err != nil {
		return fmt.Errorf("failed to create inbox item: %w", err)
	}

	*item = *created
	return nil
}

func (r *InboxRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.InboxItem, error) {
	item, err := scanInboxItem(r.pool.QueryRow(ctx,
		`SELECT `+inboxColumns+` FROM inbox_items WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInboxItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox item by ID: %w", err)
	}
	return item, nil
}

// buildInboxFilter renders the filter into SQL clauses appended after the
// user_id predicate. The clauses combine with the filter's logic, AND when
// unset. A non-empty Priorities list wins over the min/max range.
func buildInboxFilter(filter domain.InboxFilter, args []any) (string, []any) {
	clauses := []string{}

	if len(filter.Categories) > 0 {
		categories := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			categories[i] = string(c)
		}
		args = append(args, categories)
		clauses = append(clauses, fmt.Sprintf(`category = ANY($%d)`, len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf(`status = ANY($%d)`, len(args)))
	}
	switch {
	case len(filter.Priorities) > 0:
		priorities := make([]int32, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = int32(p)
		}
		args = append(args, priorities)
		clauses = append(clauses, fmt.Sprintf(`priority = ANY($%d)`, len(args)))
	default:
		if filter.PriorityMin != nil {
			args = append(args, int(*filter.PriorityMin))
			clauses = append(clauses, fmt.Sprintf(`priority >= $%d`, len(args)))
		}
		if filter.PriorityMax != nil {
			args = append(args, int(*filter.PriorityMax))
			clauses = append(clauses, fmt.Sprintf(`priority <= $%d`, len(args)))
		}
	}

	if len(clauses) == 0 {
		return "", args
	}

	logic := " AND "
	if filter.Logic == domain.FilterOr {
		logic = " OR "
	}
	return ` AND (` + strings.Join(clauses, logic) + `)`, args
}

func (r *InboxRepo) List(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error) {
	args := []any{userID}
	where, args := buildInboxFilter(filter, args)

	args = append(args, limit, skip)
	query := fmt.Sprintf(`SELECT %s FROM inbox_items WHERE user_id = $1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		inboxColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox items: %w", err)
	}
	defer rows.Close()

	items := []domain.InboxItem{}
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list inbox items: %w", err)
	}
	return items, nil
}

func (r *InboxRepo) Update(ctx context.Context, item *domain.InboxItem) error {
	updated, err := scanInboxItem(r.pool.QueryRow(ctx, `
		UPDATE inbox_items
		SET content = $3, category = $4, priority = $5, status = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+inboxColumns,
		item.ID, item.UserID, item.Content, string(item.Category), int(item.Priority), string(item.Status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrInboxItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update inbox item: %w", err)
	}

	*item = *updated
	return nil
}

func (r *InboxRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM inbox_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete inbox item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInboxItemNotFound
	}
	return nil
}

// BulkUpdateStatus moves every listed item owned by the user to the given
// status and returns the items that were actually updated. IDs belonging
// to other users or to nothing are silently skipped.
func (r *InboxRepo) BulkUpdateStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE inbox_items
		SET status = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = ANY($2)
		RETURNING `+inboxColumns,
		userID, itemIDs, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update inbox items: %w", err)
	}
	defer rows.Close()

	items := []domain.InboxItem{}
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to bulk update inbox items: %w", err)
	}
	return items, nil
}
