package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/auth"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
)

// Service is the application layer. It is the only component that
// references multiple domain components and orchestrates all use cases.
type Service struct {
	users       domain.UserRepository
	events      domain.EventRepository
	inbox       domain.InboxRepository
	tokens      *auth.TokenService
	broadcaster *Broadcaster
	clock       clockwork.Clock
}

// NewService creates the application layer service.
func NewService(
	users domain.UserRepository,
	events domain.EventRepository,
	inbox domain.InboxRepository,
	tokens *auth.TokenService,
	broadcaster *Broadcaster,
	clock clockwork.Clock,
) *Service {
	return &Service{
		users:       users,
		events:      events,
		inbox:       inbox,
		tokens:      tokens,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

// VerifyToken resolves an access token to the user ID it was issued for.
func (s *Service) VerifyToken(token string) (uuid.UUID, error) {
	return s.tokens.Verify(token)
}

// GetUserByID retrieves a user by internal ID.
func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
