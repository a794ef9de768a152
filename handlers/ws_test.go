package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu          sync.Mutex
	admit       bool
	connects    []domain.ConnectionRequest
	transports  []interfaces.Transport
	disconnects []string
}

func (g *fakeGate) OnConnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) domain.Admission {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects = append(g.connects, req)
	g.transports = append(g.transports, transport)
	if !g.admit {
		return domain.Admission{Reason: "not authenticated"}
	}
	return domain.Admission{Admitted: true, InstanceID: "inst-1"}
}

func (g *fakeGate) OnDisconnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnects = append(g.disconnects, transport.ID())
	return nil
}

func (g *fakeGate) snapshot() ([]domain.ConnectionRequest, []interfaces.Transport, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.ConnectionRequest(nil), g.connects...),
		append([]interfaces.Transport(nil), g.transports...),
		append([]string(nil), g.disconnects...)
}

func newWSTestServer(t *testing.T, gate *fakeGate) string {
	t.Helper()
	e := echo.New()
	NewWSHandler(gate, log.NewNopLogger()).Register(e)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestParseConnectionRequest(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=tok&peerID=p1&locationId=loc-1&channelId=&roomCode=room-1", nil)
	req.Header.Set("Authorization", "Bearer x")
	c := e.NewContext(req, httptest.NewRecorder())

	got := ParseConnectionRequest(c)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, domain.PeerID("p1"), got.PeerID)
	require.NotNil(t, got.LocationID)
	assert.Equal(t, "loc-1", *got.LocationID)
	assert.Nil(t, got.ChannelID)
	require.NotNil(t, got.RoomCode)
	assert.Nil(t, got.InstanceID)
	assert.Equal(t, "Bearer x", got.Headers.Get("Authorization"))
	assert.False(t, got.IsChannel())
}

func TestWSHandler_AdmittedConnection(t *testing.T) {
	gate := &fakeGate{admit: true}
	url := newWSTestServer(t, gate)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws?token=tok&peerID=p1&instanceID=inst-1", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		connects, _, _ := gate.snapshot()
		return len(connects) == 1
	}, time.Second, 5*time.Millisecond)
	connects, transports, _ := gate.snapshot()
	assert.Equal(t, "inst-1", *connects[0].InstanceID)
	assert.NotEmpty(t, transports[0].ID())

	require.NoError(t, transports[0].Send(context.Background(), []byte("hello")))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "hello", string(msg))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool {
		_, _, disconnects := gate.snapshot()
		return len(disconnects) == 1 && disconnects[0] == transports[0].ID()
	}, time.Second, 5*time.Millisecond)
}

func TestWSHandler_ServerCloseEndsConnection(t *testing.T) {
	gate := &fakeGate{admit: true}
	url := newWSTestServer(t, gate)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws?token=tok&peerID=p1", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		_, transports, _ := gate.snapshot()
		return len(transports) == 1
	}, time.Second, 5*time.Millisecond)
	_, transports, _ := gate.snapshot()

	require.NoError(t, transports[0].Close())
	require.NoError(t, transports[0].Close())

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "%v", err)
	assert.Eventually(t, func() bool {
		_, _, disconnects := gate.snapshot()
		return len(disconnects) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWSHandler_RefusedConnection(t *testing.T) {
	gate := &fakeGate{admit: false}
	url := newWSTestServer(t, gate)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws?token=bad&peerID=p1", nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Empty(t, closeErr.Text)

	time.Sleep(20 * time.Millisecond)
	_, _, disconnects := gate.snapshot()
	assert.Empty(t, disconnects)
}

func TestWSHandler_PlainHTTPIsRejected(t *testing.T) {
	gate := &fakeGate{admit: true}
	e := echo.New()
	NewWSHandler(gate, log.NewNopLogger()).Register(e)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token=tok&peerID=p1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	connects, _, _ := gate.snapshot()
	assert.Empty(t, connects)
}
