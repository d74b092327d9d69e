package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWebSocketServer wires the upgrade handler into an httptest server and
// returns the ws:// URL to dial.
func startWebSocketServer(t *testing.T, srv *PreviewServer, ctx context.Context) string {
	t.Helper()

	srv.baseCtx = ctx

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	t.Cleanup(ts.Close)

	return "ws" + ts.URL[len("http"):]
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	return conn
}

func readText(t *testing.T, ctx context.Context, conn *websocket.Conn) string {
	t.Helper()

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, msgType)

	return string(data)
}

func TestClientReceivesCurrentValueOnConnect(t *testing.T) {
	srv := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startWebSocketServer(t, srv, ctx)

	srv.broadcaster.Publish("<h1>Hello</h1>")

	conn := dial(t, ctx, url)
	assert.Equal(t, "<h1>Hello</h1>", readText(t, ctx, conn))
}

func TestClientReceivesSubsequentPublishes(t *testing.T) {
	srv := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startWebSocketServer(t, srv, ctx)

	srv.broadcaster.Publish("<p>one</p>")
	conn := dial(t, ctx, url)
	assert.Equal(t, "<p>one</p>", readText(t, ctx, conn))

	srv.broadcaster.Publish("<p>two</p>")
	assert.Equal(t, "<p>two</p>", readText(t, ctx, conn))
}

func TestClientsConnectingAtDifferentTimesConverge(t *testing.T) {
	srv := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startWebSocketServer(t, srv, ctx)

	srv.broadcaster.Publish("<p>before-edit</p>")

	early := dial(t, ctx, url)
	assert.Equal(t, "<p>before-edit</p>", readText(t, ctx, early))

	srv.broadcaster.Publish("<p>after-edit</p>")

	late := dial(t, ctx, url)

	// Both clients end on the post-edit value; the late client never saw
	// the pre-edit one.
	assert.Equal(t, "<p>after-edit</p>", readText(t, ctx, early))
	assert.Equal(t, "<p>after-edit</p>", readText(t, ctx, late))
}

func TestDisconnectReleasesClient(t *testing.T) {
	srv := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startWebSocketServer(t, srv, ctx)

	srv.broadcaster.Publish("<p>x</p>")

	conn := dial(t, ctx, url)
	_ = readText(t, ctx, conn)

	require.Eventually(t, func() bool {
		return srv.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	// The connection handler exits and the subscription is released; a
	// later publish must not leak goroutines or block the writer.
	require.Eventually(t, func() bool {
		return srv.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	srv.broadcaster.Publish("<p>y</p>")
}

func TestShutdownReleasesConnectedClients(t *testing.T) {
	srv := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := startWebSocketServer(t, srv, ctx)

	srv.broadcaster.Publish("<p>x</p>")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()

	conn := dial(t, dialCtx, url)
	_ = readText(t, dialCtx, conn)

	require.Eventually(t, func() bool {
		return srv.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// Cancelling the server's base context must release the handler even
	// though the client never disconnected.
	cancel()

	require.Eventually(t, func() bool {
		return srv.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}
