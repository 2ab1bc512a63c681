package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(ts *httptest.Server, query string) string {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sync"
	if query != "" {
		url += "?" + query
	}
	return url
}

func TestSyncWebSocket_HandsOffToGateway(t *testing.T) {
	userID := uuid.New()
	served := make(chan uuid.UUID, 1)
	gateway := &mockGateway{
		serveFn: func(ctx context.Context, uid uuid.UUID, conn *gorillaws.Conn) error {
			served <- uid
			return nil
		},
	}
	mock := &mockAppService{verifyTokenFn: allowToken(userID)}
	srv := newTestServer(t, mock, gateway)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(ts, "token="+testToken), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case uid := <-served:
		assert.Equal(t, userID, uid)
	case <-time.After(2 * time.Second):
		t.Fatal("gateway was never handed the connection")
	}
}

func TestSyncWebSocket_InvalidTokenClosesWithPolicyViolation(t *testing.T) {
	mock := &mockAppService{verifyTokenFn: allowToken(uuid.New())}
	srv := newTestServer(t, mock, &mockGateway{})

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	// The upgrade itself succeeds; rejection arrives as a close frame.
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(ts, "token=forged"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	var closeErr *gorillaws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, gorillaws.ClosePolicyViolation, closeErr.Code)
}

func TestSyncWebSocket_MissingToken(t *testing.T) {
	mock := &mockAppService{verifyTokenFn: allowToken(uuid.New())}
	srv := newTestServer(t, mock, &mockGateway{})

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()

	var closeErr *gorillaws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, gorillaws.ClosePolicyViolation, closeErr.Code)
}

func TestSyncWebSocket_GlobalLimitRejectsBeforeUpgrade(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWebSocketConnections = 0
	srv := NewServer(cfg, &mockAppService{}, &mockGateway{}, nil)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	// The dialer surfaces the HTTP status when the handshake is refused.
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL(ts, "token="+testToken), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSyncWebSocket_ReleasesSlotAfterDisconnect(t *testing.T) {
	userID := uuid.New()
	gateway := &mockGateway{
		serveFn: func(ctx context.Context, uid uuid.UUID, conn *gorillaws.Conn) error {
			// Run a minimal read loop so the slot stays held while the
			// client is connected.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return nil
				}
			}
		},
	}
	mock := &mockAppService{verifyTokenFn: allowToken(userID)}
	srv := newTestServer(t, mock, gateway)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(ts, "token="+testToken), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.limits.Current() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return srv.limits.Current() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
