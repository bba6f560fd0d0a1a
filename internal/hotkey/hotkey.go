// Package hotkey answers requests from a global keyboard hook, so y/n work
// while another window has focus.
package hotkey

import (
	"log/slog"
	"sync"

	gohook "github.com/robotn/gohook"
)

// charUndefined is the keychar reported for keys with no character.
const charUndefined = 0xFFFF

// KeyHandler receives typed keys. overlay.Controller satisfies it.
type KeyHandler interface {
	HandleKey(key string) bool
}

// Listener forwards global key presses to a KeyHandler.
// Events are observed only; the hook never suppresses a key.
type Listener struct {
	handler KeyHandler
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}

	// start and end are swapped out in tests.
	start func() chan gohook.Event
	end   func()
}

// NewListener creates a listener for handler.
func NewListener(handler KeyHandler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		handler: handler,
		logger:  logger,
		start:   gohook.Start,
		end:     gohook.End,
	}
}

// Start begins listening. It is a no-op if already running.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	events := l.start()
	if events == nil {
		l.logger.Error("keyboard hook did not start")
		return
	}

	l.running = true
	l.done = make(chan struct{})
	go l.loop(events, l.done)
	l.logger.Info("global key hook started")
}

func (l *Listener) loop(events chan gohook.Event, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in key hook", "panic", r)
		}
	}()

	for ev := range events {
		l.Dispatch(ev)
	}
	l.logger.Debug("key hook channel closed")
}

// Dispatch hands a single hook event to the handler and reports whether
// it answered a request.
func (l *Listener) Dispatch(ev gohook.Event) bool {
	if ev.Kind != gohook.KeyDown || ev.Keychar == 0 || ev.Keychar == charUndefined {
		return false
	}

	handled := l.handler.HandleKey(string(ev.Keychar))
	if handled {
		l.logger.Debug("answered from global key", "key", string(ev.Keychar))
	}
	return handled
}

// Stop ends the hook and waits for the event loop to drain.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	l.mu.Unlock()

	l.end()
	<-done
	l.logger.Info("global key hook stopped")
}
