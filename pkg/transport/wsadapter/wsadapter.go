// Package wsadapter implements spec.md §6's optional WebSocket
// transport: a connection abstraction with on_open/on_message/on_close
// callbacks whose request scope spans the connection's whole lifetime
// rather than one frame, built on github.com/gorilla/websocket the way
// _examples/2lar-b2/backend2's ws-connect/ws-send-message Lambda
// handlers model a connection's lifecycle — adapted here from an
// API-Gateway-managed connection to a direct, in-process
// gorilla/websocket connection.
package wsadapter

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/loomkit/loom/pkg/logging"
	"github.com/loomkit/loom/pkg/reqcontext"
)

// Conn is the suspension-capable connection abstraction a WebSocket
// Handler is given. Every method may block; callers are expected to run
// each connection on its own goroutine, matching net/http's
// thread-per-request model for the HTTP side.
type Conn interface {
	// ReadMessage blocks for the next frame, returning its type
	// (websocket.TextMessage or websocket.BinaryMessage) and payload.
	ReadMessage() (messageType int, payload []byte, err error)
	// WriteMessage sends one frame.
	WriteMessage(messageType int, payload []byte) error
	// Close ends the connection with the given close code and reason.
	Close(code int, reason string) error
}

// Handler is implemented by an application's WebSocket endpoint. OnOpen
// runs once the upgrade completes and the Request Context has been
// created; OnMessage runs per frame; OnClose runs once when reading from
// the connection ends (peer close, error, or server-initiated Close). It
// does not run when OnOpen returns an error.
type Handler interface {
	OnOpen(ctx context.Context, rc *reqcontext.Context, conn Conn) error
	OnMessage(ctx context.Context, rc *reqcontext.Context, conn Conn, messageType int, payload []byte) error
	OnClose(ctx context.Context, rc *reqcontext.Context, code int, reason string)
}

type gorillaConn struct {
	ws *websocket.Conn
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) { return g.ws.ReadMessage() }
func (g *gorillaConn) WriteMessage(t int, p []byte) error { return g.ws.WriteMessage(t, p) }
func (g *gorillaConn) Close(code int, reason string) error {
	_ = g.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	return g.ws.Close()
}

// Upgrader upgrades requests to WebSocket connections; its Handle method
// drives a Handler for each connection's whole lifetime. A fresh
// Request Context is created per connection (not per frame) and its
// cleanups run when the connection ends.
type Upgrader struct {
	upgrader websocket.Upgrader
	log      logging.Logger
}

// NewUpgrader builds an Upgrader. checkOrigin is passed through to
// gorilla/websocket's CheckOrigin; pass nil to allow any origin (fine
// for same-origin deployments, unsafe for public multi-tenant ones).
func NewUpgrader(log logging.Logger, checkOrigin func(r *http.Request) bool) *Upgrader {
	if log == nil {
		log = logging.NoOp()
	}
	return &Upgrader{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log,
	}
}

// Handle upgrades the request and runs h until the connection closes.
// Blocks the calling goroutine for the connection's lifetime, so callers
// typically invoke it from an http.HandlerFunc (one goroutine per
// connection, courtesy of net/http's own server loop).
func (u *Upgrader) Handle(w http.ResponseWriter, r *http.Request, h Handler) {
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &gorillaConn{ws: ws}

	rc := reqcontext.New(u.log)
	defer rc.RunCleanups()
	ctx := reqcontext.WithContext(r.Context(), rc)

	if err := h.OnOpen(ctx, rc, conn); err != nil {
		u.log.Warn("websocket on_open failed", "error", err, "request_id", rc.ID())
		conn.Close(websocket.CloseInternalServerErr, "open failed")
		return
	}

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseNormalClosure
			reason := ""
			if ce, ok := err.(*websocket.CloseError); ok {
				code, reason = ce.Code, ce.Text
			}
			h.OnClose(ctx, rc, code, reason)
			return
		}
		if err := h.OnMessage(ctx, rc, conn, messageType, payload); err != nil {
			u.log.Warn("websocket on_message failed", "error", err, "request_id", rc.ID())
		}
	}
}
