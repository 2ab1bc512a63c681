package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrResetTokenInvalid  = errors.New("password reset token invalid or expired")

	ErrEventNotFound = errors.New("event not found")
	ErrForbidden     = errors.New("resource belongs to another user")

	// ErrInvalidInterval is returned when an event's end instant does not
	// strictly follow its start instant after normalization.
	ErrInvalidInterval = errors.New("event start time must be before end time")

	// ErrSchedulingConflict is returned when a candidate event's half-open
	// interval overlaps another event owned by the same user.
	ErrSchedulingConflict = errors.New("event time conflicts with existing events")

	ErrInboxItemNotFound = errors.New("inbox item not found")
)
