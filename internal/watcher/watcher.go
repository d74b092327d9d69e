// Package watcher implements the polling change detector that drives the
// live preview pipeline.
//
// The watcher polls one file's modification timestamp on a fixed interval.
// When the timestamp moves it reads the file, renders it, and publishes the
// result. Polling was chosen over OS file-system notification deliberately:
// it behaves identically across platforms, network mounts, and editors that
// replace files on save, at the cost of at most one interval of latency.
package watcher

import (
	"context"
	"os"
	"time"

	"github.com/conneroisu/mdlive/internal/errors"
	"github.com/conneroisu/mdlive/internal/logging"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Renderer converts markdown source to HTML.
type Renderer interface {
	Render(source []byte) (string, error)
}

// Publisher receives each successfully rendered document.
type Publisher interface {
	Publish(html string)
}

// FileWatcher polls a single file and publishes rendered output on change.
type FileWatcher struct {
	path      string
	interval  time.Duration
	renderer  Renderer
	publisher Publisher
	logger    logging.Logger

	// lastMod starts at the zero time, which precedes any real file
	// timestamp, so the first poll always renders and publishes.
	lastMod time.Time
}

// NewFileWatcher creates a watcher for path. The watcher owns path and
// lastMod exclusively; nothing else mutates them.
func NewFileWatcher(path string, interval time.Duration, renderer Renderer, publisher Publisher, logger logging.Logger) *FileWatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &FileWatcher{
		path:      path,
		interval:  interval,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger.WithComponent("watcher"),
	}
}

// Run polls until ctx is cancelled. It returns nil on cancellation and a
// fatal file-access error when the watched file disappears or becomes
// unreadable; the caller decides how to terminate. Render failures are
// logged and never returned.
func (w *FileWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// First check runs immediately so clients connecting before any edit
	// still see rendered content.
	if err := w.check(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				return err
			}
		}
	}
}

// check performs a single poll: stat, compare, and re-render on change.
func (w *FileWatcher) check(ctx context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		return errors.NewFileAccessError(w.path, "cannot stat watched file", err)
	}

	modTime := info.ModTime()
	if modTime.Equal(w.lastMod) {
		return nil
	}

	source, err := os.ReadFile(w.path)
	if err != nil {
		return errors.NewFileAccessError(w.path, "cannot read watched file", err)
	}

	html, err := w.renderer.Render(source)
	if err != nil {
		// Non-fatal: keep the previous output live. The timestamp still
		// advances so an unchanged broken file is not re-rendered every
		// tick.
		w.logger.Error(ctx, err, "render failed, keeping previous output", "path", w.path)
		w.lastMod = modTime
		return nil
	}

	w.publisher.Publish(html)
	w.lastMod = modTime

	w.logger.Debug(ctx, "published rendered output",
		"path", w.path,
		"mod_time", modTime,
		"bytes", len(html),
	)

	return nil
}
