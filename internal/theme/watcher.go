package theme

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to stylesheets in a directory. Changes are
// debounced so an editor's write-rename sequence produces one callback.
type Watcher struct {
	logger   *slog.Logger
	dir      string
	debounce time.Duration
	onChange func()

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	doneCh chan struct{}
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(dir string, onChange func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		dir:      dir,
		debounce: 150 * time.Millisecond,
		onChange: onChange,
	}
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create theme watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.doneCh = make(chan struct{})
	go w.loop(ctx, fsw, w.doneCh)

	w.logger.Debug("theme watcher started", "dir", w.dir)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done := w.fsw, w.doneCh
	w.fsw = nil
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	_ = fsw.Close()
	<-done
	w.logger.Debug("theme watcher stopped", "dir", w.dir)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".css" || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("theme watcher error", "error", err)
		}
	}
}
