package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, username, email, password_hash, password_reset_token, password_reset_expires_at, created_at, updated_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a UserRepo from the shared connection pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.PasswordResetToken, &user.PasswordResetExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// mapUniqueViolation translates unique index violations on the users
// table into the matching domain sentinel.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return domain.ErrUsernameTaken
	case "users_email_key":
		return domain.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	created, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING `+userColumns,
		user.Username, user.Email, user.PasswordHash))
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	*user = *created
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByIdentifier looks a user up by username or email.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by identifier: %w", err)
	}
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	updated, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	*user = *updated
	return nil
}

// SetResetToken stores a pending password reset token. An empty token
// clears any pending reset.
func (r *UserRepo) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_reset_token = NULLIF($2, ''),
		    password_reset_expires_at = CASE WHEN $2 = '' THEN NULL ELSE $3::timestamptz END,
		    updated_at = NOW()
		WHERE id = $1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return user, nil
}
