package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached sounds when their files change on disk.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	player  *Player
	fsw     *fsnotify.Watcher
	paths   map[string]struct{}
	dirRefs map[string]int
	doneCh  chan struct{}
}

// NewWatcher creates a new sound file watcher.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:  logger,
		player:  player,
		paths:   make(map[string]struct{}),
		dirRefs: make(map[string]int),
	}
}

// Start begins watching. Paths added before Start are picked up.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create sound watcher: %w", err)
	}
	w.fsw = fsw
	w.doneCh = make(chan struct{})

	for dir := range w.dirRefs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Debug("failed to watch sound directory", "dir", dir, "error", err)
		}
	}

	go w.loop(ctx, fsw, w.doneCh)
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
}

// Watch adds a sound file. Its directory is watched so editors that
// replace files atomically are noticed.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	w.paths[path] = struct{}{}

	dir := filepath.Dir(path)
	w.dirRefs[dir]++
	if w.dirRefs[dir] == 1 && w.fsw != nil {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Debug("failed to watch sound directory", "dir", dir, "error", err)
		}
	}
}

// Unwatch removes a sound file.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; !ok {
		return
	}
	delete(w.paths, path)

	dir := filepath.Dir(path)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		if w.fsw != nil {
			_ = w.fsw.Remove(dir)
		}
	}
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("sound watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	_, watched := w.paths[event.Name]
	w.mu.Unlock()

	if watched {
		w.player.InvalidateCache(event.Name)
		w.logger.Debug("sound file changed, cache invalidated", "path", event.Name)
	}
}
