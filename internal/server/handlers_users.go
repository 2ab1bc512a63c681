package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

func (s *Server) handleGetMe(c echo.Context) error {
	user, err := s.app.GetUserByID(c.Request().Context(), currentUserID(c))
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newUserResponse(user)); err != nil {
		return fmt.Errorf("failed to write user response: %w", err)
	}
	return nil
}

type updateMeRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		return apperrors.ValidationError("username cannot be empty")
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		return apperrors.ValidationError("a valid email is required")
	}
	if req.Password != nil && len(*req.Password) < 8 {
		return apperrors.ValidationError("password must be at least 8 characters")
	}

	user, err := s.app.UpdateProfile(c.Request().Context(), currentUserID(c), app.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newUserResponse(user)); err != nil {
		return fmt.Errorf("failed to write user response: %w", err)
	}
	return nil
}
