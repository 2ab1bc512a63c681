package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/app"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/domain"
	"github.com/ian-yc-kim/fs-flowstate-svc/internal/platform/config"
)

// mockAppService implements AppService with overridable functions per
// method. Unset methods fail loudly.
type mockAppService struct {
	verifyTokenFn func(token string) (uuid.UUID, error)

	registerFn             func(ctx context.Context, username, email, password string) (*domain.User, error)
	loginFn                func(ctx context.Context, identifier, password string) (string, error)
	getUserByIDFn          func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	updateProfileFn        func(ctx context.Context, userID uuid.UUID, update app.ProfileUpdate) (*domain.User, error)
	requestPasswordResetFn func(ctx context.Context, identifier string) (string, error)
	confirmPasswordResetFn func(ctx context.Context, token, newPassword string) error

	createEventFn func(ctx context.Context, userID uuid.UUID, input app.EventInput) (*domain.Event, error)
	getEventFn    func(ctx context.Context, userID, eventID uuid.UUID) (*domain.Event, error)
	listEventsFn  func(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error)
	updateEventFn func(ctx context.Context, userID, eventID uuid.UUID, patch app.EventPatch) (*domain.Event, error)
	deleteEventFn func(ctx context.Context, userID, eventID uuid.UUID) error

	createInboxItemFn       func(ctx context.Context, userID uuid.UUID, input app.InboxInput) (*domain.InboxItem, error)
	getInboxItemFn          func(ctx context.Context, userID, itemID uuid.UUID) (*domain.InboxItem, error)
	listInboxItemsFn        func(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error)
	updateInboxItemFn       func(ctx context.Context, userID, itemID uuid.UUID, patch app.InboxPatch) (*domain.InboxItem, error)
	deleteInboxItemFn       func(ctx context.Context, userID, itemID uuid.UUID) error
	bulkUpdateInboxStatusFn func(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error)
	archiveInboxItemsFn     func(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]domain.InboxItem, error)
	convertInboxItemFn      func(ctx context.Context, userID, itemID uuid.UUID, input app.EventInput) (*domain.Event, *domain.InboxItem, error)
}

func (m *mockAppService) VerifyToken(token string) (uuid.UUID, error) {
	if m.verifyTokenFn != nil {
		return m.verifyTokenFn(token)
	}
	return uuid.Nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email, password)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) Login(ctx context.Context, identifier, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, identifier, password)
	}
	return "", fmt.Errorf("not implemented")
}

func (m *mockAppService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) UpdateProfile(ctx context.Context, userID uuid.UUID, update app.ProfileUpdate) (*domain.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	if m.requestPasswordResetFn != nil {
		return m.requestPasswordResetFn(ctx, identifier)
	}
	return "", fmt.Errorf("not implemented")
}

func (m *mockAppService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.confirmPasswordResetFn != nil {
		return m.confirmPasswordResetFn(ctx, token, newPassword)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockAppService) CreateEvent(ctx context.Context, userID uuid.UUID, input app.EventInput) (*domain.Event, error) {
	if m.createEventFn != nil {
		return m.createEventFn(ctx, userID, input)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*domain.Event, error) {
	if m.getEventFn != nil {
		return m.getEventFn(ctx, userID, eventID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListEvents(ctx context.Context, userID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, userID, filter)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) UpdateEvent(ctx context.Context, userID, eventID uuid.UUID, patch app.EventPatch) (*domain.Event, error) {
	if m.updateEventFn != nil {
		return m.updateEventFn(ctx, userID, eventID, patch)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(ctx, userID, eventID)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockAppService) CreateInboxItem(ctx context.Context, userID uuid.UUID, input app.InboxInput) (*domain.InboxItem, error) {
	if m.createInboxItemFn != nil {
		return m.createInboxItemFn(ctx, userID, input)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetInboxItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.InboxItem, error) {
	if m.getInboxItemFn != nil {
		return m.getInboxItemFn(ctx, userID, itemID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListInboxItems(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter, skip, limit int) ([]domain.InboxItem, error) {
	if m.listInboxItemsFn != nil {
		return m.listInboxItemsFn(ctx, userID, filter, skip, limit)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) UpdateInboxItem(ctx context.Context, userID, itemID uuid.UUID, patch app.InboxPatch) (*domain.InboxItem, error) {
	if m.updateInboxItemFn != nil {
		return m.updateInboxItemFn(ctx, userID, itemID, patch)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) DeleteInboxItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if m.deleteInboxItemFn != nil {
		return m.deleteInboxItemFn(ctx, userID, itemID)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockAppService) BulkUpdateInboxStatus(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID, status domain.InboxStatus) ([]domain.InboxItem, error) {
	if m.bulkUpdateInboxStatusFn != nil {
		return m.bulkUpdateInboxStatusFn(ctx, userID, itemIDs, status)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ArchiveInboxItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) ([]domain.InboxItem, error) {
	if m.archiveInboxItemsFn != nil {
		return m.archiveInboxItemsFn(ctx, userID, itemIDs)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ConvertInboxItemToEvent(ctx context.Context, userID, itemID uuid.UUID, input app.EventInput) (*domain.Event, *domain.InboxItem, error) {
	if m.convertInboxItemFn != nil {
		return m.convertInboxItemFn(ctx, userID, itemID, input)
	}
	return nil, nil, fmt.Errorf("not implemented")
}

type mockGateway struct {
	serveFn func(ctx context.Context, userID uuid.UUID, conn *gorillaws.Conn) error
}

func (m *mockGateway) ServeConnection(ctx context.Context, userID uuid.UUID, conn *gorillaws.Conn) error {
	if m.serveFn != nil {
		return m.serveFn(ctx, userID, conn)
	}
	return fmt.Errorf("not implemented")
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		MaxConnectionsPerUser:   10,
		MaxWebSocketConnections: 100,
		WSConnectionsPerIP:      10,
		WSConnectionRate:        100,
		WSConnectionBurst:       100,
	}
}

func newTestServer(t *testing.T, mock *mockAppService, gateway syncGateway) *Server {
	t.Helper()
	if gateway == nil {
		gateway = &mockGateway{}
	}
	return NewServer(testConfig(), mock, gateway, nil)
}

const testToken = "test-token"

// allowToken builds a VerifyToken stub that accepts testToken for userID.
func allowToken(userID uuid.UUID) func(string) (uuid.UUID, error) {
	return func(token string) (uuid.UUID, error) {
		if token == testToken {
			return userID, nil
		}
		return uuid.Nil, fmt.Errorf("bad token")
	}
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
