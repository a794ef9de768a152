package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
)

// ConnectionGate admits and releases peer connections. Implemented by service.Gatekeeper.
type ConnectionGate interface {
	OnConnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) domain.Admission
	OnDisconnect(ctx context.Context, transport interfaces.Transport, req domain.ConnectionRequest) error
}

// WSHandler serves the peer connection endpoint.
type WSHandler struct {
	gate     ConnectionGate
	upgrader websocket.Upgrader
	logger   log.Logger
}

// NewWSHandler creates a WSHandler. Origins are not checked: peers authenticate with their token.
func NewWSHandler(gate ConnectionGate, logger log.Logger) *WSHandler {
	return &WSHandler{
		gate: helpers.NilPanic(gate, "handlers.ws.go: connection gate is required"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.With(helpers.NilPanic(logger, "handlers.ws.go: logger is required"), "component", "ws"),
	}
}

// Register adds the endpoint to e.
func (h *WSHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Handle)
}

// ParseConnectionRequest reads the connection query. Empty values count as absent.
func ParseConnectionRequest(c echo.Context) domain.ConnectionRequest {
	return domain.ConnectionRequest{
		Token:      c.QueryParam("token"),
		PeerID:     domain.PeerID(c.QueryParam("peerID")),
		LocationID: helpers.OptionalString(c.QueryParam("locationId")),
		ChannelID:  helpers.OptionalString(c.QueryParam("channelId")),
		RoomCode:   helpers.OptionalString(c.QueryParam("roomCode")),
		InstanceID: helpers.OptionalString(c.QueryParam("instanceID")),
		Headers:    c.Request().Header.Clone(),
	}
}

// Handle upgrades the request, asks the gate for admission and keeps the connection until the
// peer leaves. Refused peers get a bare policy-violation close.
func (h *WSHandler) Handle(c echo.Context) error {
	req := ParseConnectionRequest(c)
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered with an HTTP error
		level.Debug(h.logger).Log("msg", "websocket upgrade failed", "err", err)
		return nil
	}
	transport := newWSTransport(conn)

	admission := h.gate.OnConnect(c.Request().Context(), transport, req)
	if !admission.Admitted {
		// Refused peers are closed without a reason and never reach OnDisconnect.
		transport.closeWith(websocket.ClosePolicyViolation)
		return nil
	}

	h.readLoop(transport)

	if err := h.gate.OnDisconnect(context.Background(), transport, req); err != nil {
		level.Warn(h.logger).Log("msg", "disconnect handling failed", "peer_id", req.PeerID, "err", err)
	}
	return nil
}

// readLoop drains the connection until it closes. A ping keeps idle peers alive.
func (h *WSHandler) readLoop(t *wsTransport) {
	defer t.Close()

	done := make(chan struct{})
	defer close(done)
	go t.pingLoop(done)

	t.conn.SetReadLimit(maxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				level.Debug(h.logger).Log("msg", "connection lost", "transport", t.id, "err", err)
			}
			return
		}
		_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// wsTransport is one websocket connection. Writes are serialized.
type wsTransport struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

var _ interfaces.Transport = (*wsTransport)(nil)

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{id: uuid.NewString(), conn: conn}
}

func (t *wsTransport) ID() string {
	return t.id
}

func (t *wsTransport) Send(ctx context.Context, msg []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (t *wsTransport) Close() error {
	t.closeWith(websocket.CloseNormalClosure)
	return nil
}

func (t *wsTransport) closeWith(code int) {
	t.closeOnce.Do(func() {
		_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(writeWait))
		_ = t.conn.Close()
	})
}

func (t *wsTransport) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
