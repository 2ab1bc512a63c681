package server

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/correlation"
)

const userIDContextKey = "userID"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireAuth resolves the bearer token to a user ID and stores it on the
// request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		userID, err := s.app.VerifyToken(token)
		if err != nil {
			return apperrors.UnauthorizedError("invalid or expired token")
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func currentUserID(c echo.Context) uuid.UUID {
	userID, _ := c.Get(userIDContextKey).(uuid.UUID)
	return userID
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid " + name + " parameter")
	}
	return id, nil
}
