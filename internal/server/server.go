package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/config"
)

// AppService is the application-layer surface the handlers consume.
type AppService interface {
	VerifyToken(token string) (uuid.UUID, error)

	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (string, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update app.ProfileUpdate) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, identifier string) (string, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	CreateEvent(ctx context.Context, userID uuid.UUID, input app.EventInput) (*domain.Event, error)
	GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*domain.Event, error)
	ListEvents(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, userID, eventID uuid.UUID, patch app.EventPatch) (*domain.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error

	CreateInboxItem(ctx context.Context, userID uuid.UUID, input app.InboxInput) (*domain.InboxItem, error)
	GetInboxItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.InboxItem, error)
	ListInboxItems(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error)
	UpdateInboxItem(ctx context.Context, userID, itemID uuid.UUID, patch app.InboxPatch) (*domain.InboxItem, error)
	DeleteInboxItem(ctx context.Context, userID, itemID uuid.UUID) error
	BulkUpdateInboxStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error)
	ArchiveInboxItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]domain.InboxItem, error)
	ConvertInboxItemToEvent(ctx context.Context, userID, itemID uuid.UUID, input app.EventInput) (*domain.Event, *domain.InboxItem, error)
}

// syncGateway serves registered websocket connections.
type syncGateway interface {
	ServeConnection(ctx context.Context, userID uuid.UUID, conn *gorillaws.Conn) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app     AppService
	gateway syncGateway
	limits  *ConnectionLimits

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app AppService, gateway syncGateway, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:    e,
		config:  cfg,
		app:     app,
		gateway: gateway,
		limits: NewConnectionLimits(
			int64(cfg.MaxWebSocketConnections),
			int(cfg.WSConnectionsPerIP),
			cfg.WSConnectionRate,
			cfg.WSConnectionBurst,
		),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
