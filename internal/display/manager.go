package display

import (
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/overlay"
	"github.com/jmylchreest/reqhud/internal/theme"
)

// Controller is the part of overlay.Controller the window drives.
type Controller interface {
	Respond(accept bool)
	HandleKey(key string) bool
	State() overlay.ViewState
	Subscribe(obs overlay.Observer)
}

// Manager keeps the overlay window in step with the controller.
// Observe may be called from any goroutine; rendering happens on the GTK
// main loop.
type Manager struct {
	app    *gtk.Application
	ctrl   Controller
	themes *theme.Loader
	logger *slog.Logger

	mu      sync.Mutex
	config  *config.Config
	window  *Window
	lastSeq uint64
}

// NewManager creates a new display manager.
func NewManager(app *gtk.Application, ctrl Controller, themes *theme.Loader, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Manager{
		app:    app,
		ctrl:   ctrl,
		themes: themes,
		config: cfg,
		logger: logger,
	}
}

// Start creates the window and subscribes to the controller. It must be
// called on the GTK main loop, typically from the application's activate
// signal.
func (m *Manager) Start() error {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return &DisplayError{Message: "no display available"}
	}
	if m.themes != nil {
		m.themes.Apply(display)
	}

	m.mu.Lock()
	cfg := m.config
	m.mu.Unlock()

	win := NewWindow(m.app, cfg, m.logger)
	win.SetAnswerHandler(m.ctrl.Respond)
	win.SetKeyHandler(m.ctrl.HandleKey)

	m.mu.Lock()
	m.window = win
	m.mu.Unlock()

	m.ctrl.Subscribe(m.Observe)
	m.render(m.ctrl.State())

	m.logger.Info("display manager started")
	return nil
}

// Stop destroys the window.
func (m *Manager) Stop() {
	m.mu.Lock()
	win := m.window
	m.window = nil
	m.mu.Unlock()

	if win != nil {
		win.Destroy()
	}
	m.logger.Info("display manager stopped")
}

// Observe implements overlay.Observer.
func (m *Manager) Observe(change overlay.Change, view overlay.ViewState) {
	glib.IdleAdd(func() {
		m.logger.Debug("rendering overlay", "change", change, "seq", view.Seq, "time_left", view.TimeLeft)
		m.render(view)
	})
}

// UpdateConfig applies a hot-reloaded configuration on the main loop.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	glib.IdleAdd(func() {
		if m.themes != nil {
			m.themes.UpdateConfig(cfg)
		}
		m.mu.Lock()
		win := m.window
		m.mu.Unlock()
		if win != nil {
			win.ApplyConfig(cfg)
		}
	})
}

// render draws view unless a newer snapshot has already been drawn.
func (m *Manager) render(view overlay.ViewState) {
	m.mu.Lock()
	win := m.window
	stale := view.Seq < m.lastSeq
	if !stale {
		m.lastSeq = view.Seq
	}
	m.mu.Unlock()

	if win == nil || stale {
		return
	}

	scheme := ""
	if m.themes != nil {
		scheme = m.themes.SchemeClass()
	}
	win.Render(view, scheme)
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
