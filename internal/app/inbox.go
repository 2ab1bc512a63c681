package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// metadataInboxSource is the event metadata key recording which inbox
// item an event was converted from.
const metadataInboxSource = "converted_from_inbox_item_id"

// InboxInput carries the caller-supplied fields of a new inbox item.
type InboxInput struct {
	Content  string
	Category domain.InboxCategory
	Priority domain.InboxPriority
	Status   domain.InboxStatus
}

// InboxPatch carries the optional fields of an inbox item change.
type InboxPatch struct {
	Content  *string
	Category *domain.InboxCategory
	Priority *domain.InboxPriority
	Status   *domain.InboxStatus
}

// CreateInboxItem stores a new quick-capture item and broadcasts it.
func (s *Service) CreateInboxItem(ctx context.Context, userID uuid.UUID, input InboxInput) (*domain.InboxItem, error) {
	item := &domain.InboxItem{
		UserID:   userID,
		Content:  input.Content,
		Category: input.Category,
		Priority: input.Priority,
		Status:   input.Status,
	}
	if err := s.inbox.Create(ctx, item); err != nil {
		return nil, err
	}

	s.broadcaster.InboxChanged(ctx, ActionCreated, item)
	return item, nil
}

// GetInboxItem returns an inbox item owned by the user.
func (s *Service) GetInboxItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.InboxItem, error) {
	return s.inbox.GetByID(ctx, itemID, userID)
}

// ListInboxItems returns a filtered page of the user's inbox.
func (s *Service) ListInboxItems(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error) {
	return s.inbox.List(ctx, userID, filter, skip, limit)
}

// UpdateInboxItem applies a partial change and broadcasts the result.
func (s *Service) UpdateInboxItem(ctx context.Context, userID, itemID uuid.UUID, patch InboxPatch) (*domain.InboxItem, error) {
	item, err := s.inbox.GetByID(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		item.Content = *patch.Content
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Priority != nil {
		item.Priority = *patch.Priority
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}

	if err := s.inbox.Update(ctx, item); err != nil {
		return nil, err
	}

	s.broadcaster.InboxChanged(ctx, ActionUpdated, item)
	return item, nil
}

// DeleteInboxItem removes an inbox item and broadcasts the deletion.
func (s *Service) DeleteInboxItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.inbox.Delete(ctx, itemID, userID); err != nil {
		return err
	}

	s.broadcaster.InboxDeleted(ctx, userID, itemID)
	return nil
}

// BulkUpdateInboxStatus moves the listed items to the given status,
// skipping IDs the user does not own, and broadcasts each change.
func (s *Service) BulkUpdateInboxStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error) {
	items, err := s.inbox.BulkUpdateStatus(ctx, userID, itemIDs, status)
	if err != nil {
		return nil, err
	}

	for i := range items {
		s.broadcaster.InboxChanged(ctx, ActionUpdated, &items[i])
	}
	return items, nil
}

// ArchiveInboxItems is bulk archival of the listed items.
func (s *Service) ArchiveInboxItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]domain.InboxItem, error) {
	return s.BulkUpdateInboxStatus(ctx, userID, itemIDs, domain.StatusArchived)
}

// ConvertInboxItemToEvent seeds an event from an inbox item through the
// conflict-checked path, marks the item SCHEDULED, and broadcasts both
// changes. The event records its source item in metadata.
func (s *Service) ConvertInboxItemToEvent(ctx context.Context, userID, itemID uuid.UUID, input EventInput) (*domain.Event, *domain.InboxItem, error) {
	item, err := s.inbox.GetByID(ctx, itemID, userID)
	if err != nil {
		return nil, nil, err
	}

	if input.Title == "" {
		input.Title = item.Content
	}
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}
	input.Metadata[metadataInboxSource] = itemID.String()

	event, err := s.CreateEvent(ctx, userID, input)
	if err != nil {
		return nil, nil, err
	}

	scheduled := domain.StatusScheduled
	item, err = s.UpdateInboxItem(ctx, userID, itemID, InboxPatch{Status: &scheduled})
	if err != nil {
		return nil, nil, err
	}

	metrics.InboxConversionsTotal.Inc()
	return event, item, nil
}
