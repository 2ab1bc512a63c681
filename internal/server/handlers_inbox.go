package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

const (
	defaultInboxPageSize = 100
	maxInboxPageSize     = 500
)

type createInboxItemRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Priority *int   `json:"priority"`
	Status   string `json:"status"`
}

func (r *createInboxItemRequest) toInput() (app.InboxInput, error) {
	if strings.TrimSpace(r.Content) == "" {
		return app.InboxInput{}, apperrors.ValidationError("content is required")
	}

	input := app.InboxInput{
		Content:  r.Content,
		Category: domain.CategoryNote,
		Priority: domain.PriorityP3,
		Status:   domain.StatusPending,
	}

	if r.Category != "" {
		category, err := domain.ParseInboxCategory(r.Category)
		if err != nil {
			return app.InboxInput{}, apperrors.ValidationError(err.Error())
		}
		input.Category = category
	}
	if r.Priority != nil {
		priority := domain.InboxPriority(*r.Priority)
		if !priority.Valid() {
			return app.InboxInput{}, apperrors.ValidationError("priority must be between 1 and 5")
		}
		input.Priority = priority
	}
	if r.Status != "" {
		status, err := domain.ParseInboxStatus(r.Status)
		if err != nil {
			return app.InboxInput{}, apperrors.ValidationError(err.Error())
		}
		input.Status = status
	}

	return input, nil
}

func (s *Server) handleCreateInboxItem(c echo.Context) error {
	var req createInboxItemRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	item, err := s.app.CreateInboxItem(c.Request().Context(), currentUserID(c), input)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusCreated, newInboxItemResponse(item)); err != nil {
		return fmt.Errorf("failed to write inbox response: %w", err)
	}
	return nil
}

func (s *Server) handleGetInboxItem(c echo.Context) error {
	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	item, err := s.app.GetInboxItem(c.Request().Context(), currentUserID(c), itemID)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newInboxItemResponse(item)); err != nil {
		return fmt.Errorf("failed to write inbox response: %w", err)
	}
	return nil
}

func parseInboxFilter(c echo.Context) (domain.InboxFilter, error) {
	var filter domain.InboxFilter

	for _, raw := range c.QueryParams()["categories"] {
		category, err := domain.ParseInboxCategory(raw)
		if err != nil {
			return filter, apperrors.ValidationError(err.Error())
		}
		filter.Categories = append(filter.Categories, category)
	}
	for _, raw := range c.QueryParams()["statuses"] {
		status, err := domain.ParseInboxStatus(raw)
		if err != nil {
			return filter, apperrors.ValidationError(err.Error())
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range c.QueryParams()["priorities"] {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.InboxPriority(n).Valid() {
			return filter, apperrors.ValidationError("priorities must be integers between 1 and 5")
		}
		filter.Priorities = append(filter.Priorities, domain.InboxPriority(n))
	}

	if raw := c.QueryParam("priority_min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.InboxPriority(n).Valid() {
			return filter, apperrors.ValidationError("priority_min must be between 1 and 5")
		}
		p := domain.InboxPriority(n)
		filter.PriorityMin = &p
	}
	if raw := c.QueryParam("priority_max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.InboxPriority(n).Valid() {
			return filter, apperrors.ValidationError("priority_max must be between 1 and 5")
		}
		p := domain.InboxPriority(n)
		filter.PriorityMax = &p
	}

	switch strings.ToUpper(c.QueryParam("filter_logic")) {
	case "", string(domain.FilterAnd):
		filter.Logic = domain.FilterAnd
	case string(domain.FilterOr):
		filter.Logic = domain.FilterOr
	default:
		return filter, apperrors.ValidationError("filter_logic must be AND or OR")
	}

	return filter, nil
}

func parsePagination(c echo.Context) (skip, limit int, err error) {
	skip, limit = 0, defaultInboxPageSize

	if raw := c.QueryParam("skip"); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return 0, 0, apperrors.ValidationError("skip must be a non-negative integer")
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxInboxPageSize {
			return 0, 0, apperrors.ValidationError(fmt.Sprintf("limit must be between 1 and %d", maxInboxPageSize))
		}
	}
	return skip, limit, nil
}

func (s *Server) handleListInboxItems(c echo.Context) error {
	filter, err := parseInboxFilter(c)
	if err != nil {
		return err
	}
	skip, limit, err := parsePagination(c)
	if err != nil {
		return err
	}

	items, err := s.app.ListInboxItems(c.Request().Context(), currentUserID(c), filter, skip, limit)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newInboxListResponse(items)); err != nil {
		return fmt.Errorf("failed to write inbox list response: %w", err)
	}
	return nil
}

type updateInboxItemRequest struct {
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Priority *int    `json:"priority"`
	Status   *string `json:"status"`
}

func (r *updateInboxItemRequest) toPatch() (app.InboxPatch, error) {
	var patch app.InboxPatch

	if r.Content != nil {
		if strings.TrimSpace(*r.Content) == "" {
			return patch, apperrors.ValidationError("content cannot be empty")
		}
		patch.Content = r.Content
	}
	if r.Category != nil {
		category, err := domain.ParseInboxCategory(*r.Category)
		if err != nil {
			return patch, apperrors.ValidationError(err.Error())
		}
		patch.Category = &category
	}
	if r.Priority != nil {
		priority := domain.InboxPriority(*r.Priority)
		if !priority.Valid() {
			return patch, apperrors.ValidationError("priority must be between 1 and 5")
		}
		patch.Priority = &priority
	}
	if r.Status != nil {
		status, err := domain.ParseInboxStatus(*r.Status)
		if err != nil {
			return patch, apperrors.ValidationError(err.Error())
		}
		patch.Status = &status
	}

	return patch, nil
}

func (s *Server) handleUpdateInboxItem(c echo.Context) error {
	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateInboxItemRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	patch, err := req.toPatch()
	if err != nil {
		return err
	}

	item, err := s.app.UpdateInboxItem(c.Request().Context(), currentUserID(c), itemID, patch)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newInboxItemResponse(item)); err != nil {
		return fmt.Errorf("failed to write inbox response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteInboxItem(c echo.Context) error {
	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteInboxItem(c.Request().Context(), currentUserID(c), itemID); err != nil {
		return apperrors.FromDomain(err)
	}

	return c.NoContent(http.StatusNoContent)
}

type bulkStatusRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
	Status  string      `json:"status"`
}

func (s *Server) handleBulkUpdateInboxStatus(c echo.Context) error {
	var req bulkStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if len(req.ItemIDs) == 0 {
		return apperrors.ValidationError("item_ids is required")
	}

	status, err := domain.ParseInboxStatus(req.Status)
	if err != nil {
		return apperrors.ValidationError(err.Error())
	}

	items, err := s.app.BulkUpdateInboxStatus(c.Request().Context(), currentUserID(c), req.ItemIDs, status)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newInboxListResponse(items)); err != nil {
		return fmt.Errorf("failed to write inbox list response: %w", err)
	}
	return nil
}

type bulkArchiveRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

func (s *Server) handleArchiveInboxItems(c echo.Context) error {
	var req bulkArchiveRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if len(req.ItemIDs) == 0 {
		return apperrors.ValidationError("item_ids is required")
	}

	items, err := s.app.ArchiveInboxItems(c.Request().Context(), currentUserID(c), req.ItemIDs)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	if err := c.JSON(http.StatusOK, newInboxListResponse(items)); err != nil {
		return fmt.Errorf("failed to write inbox list response: %w", err)
	}
	return nil
}

type convertInboxItemResponse struct {
	Event eventResponse     `json:"event"`
	Item  inboxItemResponse `json:"item"`
}

func (s *Server) handleConvertInboxItem(c echo.Context) error {
	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	// An empty title is allowed here; the item's content stands in.
	start, err := parseClientTime("start_time", req.StartTime)
	if err != nil {
		return err
	}
	end, err := parseClientTime("end_time", req.EndTime)
	if err != nil {
		return err
	}
	input := app.EventInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartTime:   start,
		EndTime:     end,
		Category:    req.Category,
		IsAllDay:    req.IsAllDay,
		IsRecurring: req.IsRecurring,
		Metadata:    req.Metadata,
	}

	event, item, err := s.app.ConvertInboxItemToEvent(c.Request().Context(), currentUserID(c), itemID, input)
	if err != nil {
		return apperrors.FromDomain(err)
	}

	response := convertInboxItemResponse{
		Event: newEventResponse(event),
		Item:  newInboxItemResponse(item),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write convert response: %w", err)
	}
	return nil
}
