package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

type createEventRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartTime   string         `json:"start_time"`
	EndTime     string         `json:"end_time"`
	Category    string         `json:"category"`
	IsAllDay    bool           `json:"is_all_day"`
	IsRecurring bool           `json:"is_recurring"`
	Metadata    map[string]any `json:"metadata"`
}

func (r *createEventRequest) toInput() (app.EventInput, error) {
	if strings.TrimSpace(r.Title) == "" {
		return app.EventInput{}, apperrors.ValidationError("title is required")
	}

	start, err := parseClientTime("start_time", r.StartTime)
	if err != nil {
		return app.EventInput{}, err
	}
	end, err := parseClientTime("end_time", r.EndTime)
	if err != nil {
		return app.EventInput{}, err
	}

	return app.EventInput{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   start,
		EndTime:     end,
		Category:    r.Category,
		IsAllDay:    r.IsAllDay,
		IsRecurring: r.IsRecurring,
		Metadata:    r.Metadata,
	}, nil
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	event, err := s.app.CreateEvent(c.Request().Context(), currentUserID(c), input)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusCreated, newEventResponse(event)); err != nil {
		return fmt.Errorf("failed to write event response: %w", err)
	}
	return nil
}

func (s *Server) handleGetEvent(c echo.Context) error {
	eventID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	event, err := s.app.GetEvent(c.Request().Context(), currentUserID(c), eventID)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newEventResponse(event)); err != nil {
		return fmt.Errorf("failed to write event response: %w", err)
	}
	return nil
}

func (s *Server) handleListEvents(c echo.Context) error {
	var filter domain.EventFilter

	if raw := c.QueryParam("start_date"); raw != "" {
		t, err := parseClientTime("start_date", raw)
		if err != nil {
			return err
		}
		filter.StartDate = &t
	}
	if raw := c.QueryParam("end_date"); raw != "" {
		t, err := parseClientTime("end_date", raw)
		if err != nil {
			return err
		}
		filter.EndDate = &t
	}
	filter.Category = c.QueryParam("category")

	events, err := s.app.ListEvents(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newEventListResponse(events)); err != nil {
		return fmt.Errorf("failed to write event list response: %w", err)
	}
	return nil
}

type updateEventRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Category    *string        `json:"category"`
	IsAllDay    *bool          `json:"is_all_day"`
	IsRecurring *bool          `json:"is_recurring"`
	Metadata    map[string]any `json:"metadata"`
}

func (r *updateEventRequest) toPatch() (app.EventPatch, error) {
	patch := app.EventPatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		IsAllDay:    r.IsAllDay,
		IsRecurring: r.IsRecurring,
		Metadata:    r.Metadata,
	}

	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return app.EventPatch{}, apperrors.ValidationError("title cannot be empty")
	}
	if r.StartTime != nil {
		t, err := parseClientTime("start_time", *r.StartTime)
		if err != nil {
			return app.EventPatch{}, err
		}
		patch.StartTime = &t
	}
	if r.EndTime != nil {
		t, err := parseClientTime("end_time", *r.EndTime)
		if err != nil {
			return app.EventPatch{}, err
		}
		patch.EndTime = &t
	}

	return patch, nil
}

func (s *Server) handleUpdateEvent(c echo.Context) error {
	eventID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	patch, err := req.toPatch()
	if err != nil {
		return err
	}

	event, err := s.app.UpdateEvent(c.Request().Context(), currentUserID(c), eventID, patch)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newEventResponse(event)); err != nil {
		return fmt.Errorf("failed to write event response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteEvent(c echo.Context) error {
	eventID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteEvent(c.Request().Context(), currentUserID(c), eventID); err != nil {
		return apperrors.FromDomain(err)
	}

	return c.NoContent(http.StatusNoContent)
}
