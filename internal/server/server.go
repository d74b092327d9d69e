// Package server provides the HTTP front door for the live preview: the
// initial page shell, the websocket upgrade endpoint, and a health check.
// It never initiates renders; it only reflects what the change detector
// publishes through the broadcast channel.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/mdlive/internal/broadcast"
	"github.com/conneroisu/mdlive/internal/config"
	"github.com/conneroisu/mdlive/internal/logging"
	"github.com/conneroisu/mdlive/internal/version"
)

//go:embed templates/index.html
var templateFS embed.FS

// PreviewServer serves the page shell and live websocket updates.
type PreviewServer struct {
	config      *config.Config
	broadcaster *broadcast.Broadcaster
	logger      logging.Logger
	indexTmpl   *template.Template

	httpServer  *http.Server
	serverMutex sync.RWMutex

	// baseCtx is the context Start ran with; connection handlers derive
	// from it so shutdown releases every client loop.
	baseCtx context.Context

	clientCount  atomic.Int64
	shutdownOnce sync.Once
}

type indexData struct {
	Filename string
	Host     string
	Port     int
}

// New creates a preview server backed by the given broadcaster.
func New(cfg *config.Config, broadcaster *broadcast.Broadcaster, logger logging.Logger) (*PreviewServer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}

	return &PreviewServer{
		config:      cfg,
		broadcaster: broadcaster,
		logger:      logger.WithComponent("server"),
		indexTmpl:   tmpl,
		baseCtx:     context.Background(),
	}, nil
}

// Start runs the HTTP server until it is shut down. Connection handlers are
// released when ctx is cancelled.
func (s *PreviewServer) Start(ctx context.Context) error {
	s.baseCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	addr := s.config.Addr()

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	srv := s.httpServer
	s.serverMutex.Unlock()

	if s.config.Server.Open {
		go s.openBrowser(fmt.Sprintf("http://%s", addr))
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and drains the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.serverMutex.RLock()
		srv := s.httpServer
		s.serverMutex.RUnlock()

		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// ClientCount returns the number of live websocket connections.
func (s *PreviewServer) ClientCount() int {
	return int(s.clientCount.Load())
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := indexData{
		Filename: filepath.Base(s.config.File),
		Host:     s.config.Server.Host,
		Port:     s.config.Server.Port,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.indexTmpl.Execute(w, data); err != nil {
		s.logger.Error(r.Context(), err, "rendering index template")
	}
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, published := s.broadcaster.Latest()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetVersion(),
		"file":      s.config.File,
		"clients":   s.ClientCount(),
		"published": published > 0,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error(r.Context(), err, "encoding health response")
	}
}

func (s *PreviewServer) openBrowser(url string) {
	time.Sleep(100 * time.Millisecond) // Give the listener time to start

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(s.baseCtx, err, "failed to open browser", "url", url)
	}
}
