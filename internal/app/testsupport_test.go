package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/auth"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/schedule"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/websocket"
)

// --- In-memory fakes ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	clock clockwork.Clock
}

func newFakeUserRepo(clock clockwork.Clock) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User), clock: clock}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = r.clock.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == identifier || u.Email == identifier {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordResetToken = stored.PasswordResetToken
	user.PasswordResetExpiresAt = stored.PasswordResetExpiresAt
	user.UpdatedAt = r.clock.Now().UTC()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if token == "" {
		u.PasswordResetToken = nil
		u.PasswordResetExpiresAt = nil
		return nil
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrResetTokenInvalid
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.Event
	clock  clockwork.Clock
}

func newFakeEventRepo(clock clockwork.Clock) *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*domain.Event), clock: clock}
}

func (r *fakeEventRepo) userEvents(userID uuid.UUID) []domain.Event {
	var out []domain.Event
	for _, e := range r.events {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out
}

func (r *fakeEventRepo) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if schedule.Conflicts(r.userEvents(event.UserID), event.StartTime, event.EndTime, nil) {
		return domain.ErrSchedulingConflict
	}
	event.ID = uuid.New()
	event.CreatedAt = r.clock.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEventRepo) List(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Event{}
	for _, e := range r.userEvents(userID) {
		if filter.StartDate != nil && !e.EndTime.After(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && !e.StartTime.Before(*filter.EndDate) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok || stored.UserID != event.UserID {
		return domain.ErrEventNotFound
	}
	if schedule.Conflicts(r.userEvents(event.UserID), event.StartTime, event.EndTime, &event.ID) {
		return domain.ErrSchedulingConflict
	}
	event.UpdatedAt = r.clock.Now().UTC()
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.UserID != userID {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

type fakeInboxRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.InboxItem
	clock clockwork.Clock
}

func newFakeInboxRepo(clock clockwork.Clock) *fakeInboxRepo {
	return &fakeInboxRepo{items: make(map[uuid.UUID]*domain.InboxItem), clock: clock}
}

func (r *fakeInboxRepo) Create(ctx context.Context, item *domain.InboxItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = r.clock.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *fakeInboxRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.InboxItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return nil, domain.ErrInboxItemNotFound
	}
	clone := *item
	return &clone, nil
}

func matchesFilter(item *domain.InboxItem, filter domain.InboxFilter) bool {
	var clauses []bool
	if len(filter.Categories) > 0 {
		match := false
		for _, c := range filter.Categories {
			if item.Category == c {
				match = true
			}
		}
		clauses = append(clauses, match)
	}
	if len(filter.Statuses) > 0 {
		match := false
		for _, s := range filter.Statuses {
			if item.Status == s {
				match = true
			}
		}
		clauses = append(clauses, match)
	}
	if len(filter.Priorities) > 0 {
		match := false
		for _, p := range filter.Priorities {
			if item.Priority == p {
				match = true
			}
		}
		clauses = append(clauses, match)
	} else {
		if filter.PriorityMin != nil {
			clauses = append(clauses, item.Priority >= *filter.PriorityMin)
		}
		if filter.PriorityMax != nil {
			clauses = append(clauses, item.Priority <= *filter.PriorityMax)
		}
	}

	if len(clauses) == 0 {
		return true
	}
	if filter.Logic == domain.FilterOr {
		for _, c := range clauses {
			if c {
				return true
			}
		}
		return false
	}
	for _, c := range clauses {
		if !c {
			return false
		}
	}
	return true
}

func (r *fakeInboxRepo) List(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []domain.InboxItem{}
	for _, item := range r.items {
		if item.UserID == userID && matchesFilter(item, filter) {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if skip >= len(matched) {
		return []domain.InboxItem{}, nil
	}
	matched = matched[skip:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeInboxRepo) Update(ctx context.Context, item *domain.InboxItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok || stored.UserID != item.UserID {
		return domain.ErrInboxItemNotFound
	}
	item.UpdatedAt = r.clock.Now().UTC()
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *fakeInboxRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return domain.ErrInboxItemNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeInboxRepo) BulkUpdateStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := []domain.InboxItem{}
	for _, id := range itemIDs {
		item, ok := r.items[id]
		if !ok || item.UserID != userID {
			continue
		}
		item.Status = status
		item.UpdatedAt = r.clock.Now().UTC()
		updated = append(updated, *item)
	}
	return updated, nil
}

// --- Broadcast recorders ---

type sentEnvelope struct {
	userID uuid.UUID
	env    websocket.Envelope
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []sentEnvelope
}

func (g *recordingGateway) Broadcast(userID uuid.UUID, env websocket.Envelope) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentEnvelope{userID: userID, env: env})
	return nil
}

func (g *recordingGateway) snapshot() []sentEnvelope {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentEnvelope{}, g.sent...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []sentEnvelope
}

func (p *recordingPublisher) Publish(ctx context.Context, userID uuid.UUID, env websocket.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEnvelope{userID: userID, env: env})
	return nil
}

func (p *recordingPublisher) snapshot() []sentEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentEnvelope{}, p.sent...)
}

// --- Harness ---

const testJWTSecret = "test-jwt-secret-at-least-32-chars!!!"

type testHarness struct {
	service   *Service
	users     *fakeUserRepo
	events    *fakeEventRepo
	inbox     *fakeInboxRepo
	gateway   *recordingGateway
	publisher *recordingPublisher
	clock     *clockwork.FakeClock
}

func newTestHarness() *testHarness {
	clock := clockwork.NewFakeClock()
	users := newFakeUserRepo(clock)
	events := newFakeEventRepo(clock)
	inbox := newFakeInboxRepo(clock)
	gateway := &recordingGateway{}
	publisher := &recordingPublisher{}

	tokens := auth.NewTokenService(testJWTSecret, 30*time.Minute, clock)
	broadcaster := NewBroadcaster(gateway, publisher)
	service := NewService(users, events, inbox, tokens, broadcaster, clock)

	return &testHarness{
		service:   service,
		users:     users,
		events:    events,
		inbox:     inbox,
		gateway:   gateway,
		publisher: publisher,
		clock:     clock,
	}
}
