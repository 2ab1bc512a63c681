package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. PasswordHash is a bcrypt hash; the reset
// token fields are only populated while a password reset is pending.
type User struct {
	ID                     uuid.UUID
	Username               string
	Email                  string
	PasswordHash           string
	PasswordResetToken     *string
	PasswordResetExpiresAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
