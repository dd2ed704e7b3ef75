// Package watch re-runs a cleanup whenever the revision manifest changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/revclean/pkg/revclean/logging"
)

// DefaultDebounce collapses the burst of events a single manifest write
// produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a manifest file for changes.
type Watcher struct {
	manifest string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New creates a Watcher for manifestPath. The manifest's directory must exist;
// the file itself may appear later.
func New(manifestPath string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve absolute path for %q: %w", manifestPath, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors and build tools replace the file by rename,
	// which drops a watch placed on the file itself.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{manifest: abs, debounce: debounce, watcher: fsw}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run blocks until ctx is cancelled, calling onChange once per debounced
// burst of manifest events. onChange errors are logged and do not stop Run.
func (w *Watcher) Run(ctx context.Context, onChange func() error) error {
	logger := logging.Get("watch")

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("manifest event", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := onChange(); err != nil {
				logger.Error("cleanup after manifest change failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether event changes the manifest's content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.manifest {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
