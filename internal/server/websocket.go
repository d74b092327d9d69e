package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/mdlive/internal/errors"
)

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

// handleWebSocket upgrades the request and runs the per-client forward loop
// until the client disconnects or the server shuts down.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is validated above against the configured bind address.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	s.serveClient(conn, r.RemoteAddr)
}

// serveClient is the connection handler: it subscribes to the broadcast
// channel and forwards each newly published document to this one client.
// Failures here are scoped to this connection and never affect the watcher
// or other clients.
func (s *PreviewServer) serveClient(conn *websocket.Conn, remote string) {
	s.clientCount.Add(1)
	defer s.clientCount.Add(-1)

	// CloseRead drains incoming frames (the protocol is server-to-client
	// only) and cancels the context when the client closes the connection.
	ctx := conn.CloseRead(s.baseCtx)
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := s.broadcaster.Subscribe()

	s.logger.Debug(ctx, "client connected", "remote", remote)

	for {
		html, err := sub.Next(ctx)
		if err != nil {
			// Client disconnected or the process is shutting down.
			s.logger.Debug(context.Background(), "client subscription closed", "remote", remote)
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err = conn.Write(writeCtx, websocket.MessageText, []byte(html))
		cancel()

		if err != nil {
			terr := errors.NewTransportError("could not send update to client", err)
			s.logger.Warn(context.Background(), terr, "dropping client", "remote", remote)
			return
		}
	}
}

// checkOrigin validates the request origin. Browser clients served from the
// page shell carry the bind address as origin; non-browser clients with no
// origin header are allowed since the server only binds loopback by default.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowed := []string{
		s.config.Addr(),
		fmt.Sprintf("localhost:%d", s.config.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.config.Server.Port),
	}

	for _, host := range allowed {
		if originURL.Host == host {
			return true
		}
	}

	return false
}
