package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "":
		return apperrors.ValidationError("username is required")
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return apperrors.ValidationError("a valid email is required")
	case len(req.Password) < 8:
		return apperrors.ValidationError("password must be at least 8 characters")
	}

	user, err := s.app.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusCreated, newUserResponse(user)); err != nil {
		return fmt.Errorf("failed to write register response: %w", err)
	}
	return nil
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Identifier == "" || req.Password == "" {
		return apperrors.ValidationError("identifier and password are required")
	}

	token, err := s.app.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"}); err != nil {
		return fmt.Errorf("failed to write login response: %w", err)
	}
	return nil
}

type passwordResetRequest struct {
	Identifier string `json:"identifier"`
}

func (s *Server) handlePasswordResetRequest(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Identifier == "" {
		return apperrors.ValidationError("identifier is required")
	}

	response := map[string]string{"status": "ok"}

	token, err := s.app.RequestPasswordReset(c.Request().Context(), req.Identifier)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		// Unknown identifiers get the same answer as known ones.
	case err != nil:
		return apperrors.FromDomain(err)
	default:
		response["reset_token"] = token
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write reset response: %w", err)
	}
	return nil
}

type passwordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handlePasswordResetConfirm(c echo.Context) error {
	var req passwordResetConfirm
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Token == "" {
		return apperrors.ValidationError("token is required")
	}
	if len(req.NewPassword) < 8 {
		return apperrors.ValidationError("password must be at least 8 characters")
	}

	if err := s.app.ConfirmPasswordReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to write reset confirm response: %w", err)
	}
	return nil
}
