package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/auth"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// resetTokenTTL bounds how long a password reset token stays usable.
const resetTokenTTL = time.Hour

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by username or email and returns an access token.
// Unknown identifiers and wrong passwords are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return token, nil
}

// ProfileUpdate carries the optional fields of a profile change.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// UpdateProfile applies a partial profile change and returns the updated
// user.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Password != nil {
		hash, err := auth.HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset stores an opaque reset token on the account and
// returns it. Callers decide whether to reveal unknown identifiers.
func (s *Service) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}

	token, err := newResetToken()
	if err != nil {
		return "", err
	}

	expiresAt := s.clock.Now().UTC().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and replaces the password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		return err
	}

	if user.PasswordResetExpiresAt == nil || s.clock.Now().After(*user.PasswordResetExpiresAt) {
		return domain.ErrResetTokenInvalid
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	// The token is single-use.
	return s.users.SetResetToken(ctx, user.ID, "", time.Time{})
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
