package errors

import (
	"errors"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// FromDomain maps domain sentinel errors onto structured errors so
// handlers can return repository and service errors directly.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrInboxItemNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrSchedulingConflict):
		return ConflictError(err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrResetTokenInvalid):
		return UnauthorizedError(err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return ForbiddenError(err.Error())
	case errors.Is(err, domain.ErrInvalidInterval):
		return ValidationError(err.Error())
	}

	return AsStructuredError(err)
}
