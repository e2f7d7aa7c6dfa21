package wsadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/reqcontext"
)

type echoHandler struct {
	opened  chan string
	closed  chan int
}

func (h *echoHandler) OnOpen(ctx context.Context, rc *reqcontext.Context, conn Conn) error {
	h.opened <- rc.ID()
	return nil
}

func (h *echoHandler) OnMessage(ctx context.Context, rc *reqcontext.Context, conn Conn, messageType int, payload []byte) error {
	return conn.WriteMessage(messageType, payload)
}

func (h *echoHandler) OnClose(ctx context.Context, rc *reqcontext.Context, code int, reason string) {
	h.closed <- code
}

func TestUpgrader_EchoesMessagesAndRunsOpenCloseHooks(t *testing.T) {
	h := &echoHandler{opened: make(chan string, 1), closed: make(chan int, 1)}
	up := NewUpgrader(nil, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.Handle(w, r, h)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	select {
	case id := <-h.opened:
		assert.NotEmpty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for on_open")
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(payload))

	require.NoError(t, conn.Close())

	select {
	case <-h.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for on_close")
	}
}
