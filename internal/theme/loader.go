package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/reqhud/internal/config"
)

// Loader installs the selected theme into GTK and keeps it current.
// Methods touching GTK must run on the main loop; the watcher callback
// hops there with glib.IdleAdd.
type Loader struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider *gtk.CSSProvider
	dir      string
	name     string
	scheme   config.ColorScheme
	theme    *Theme
	watcher  *Watcher
}

// NewLoader creates a new theme loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := Dir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
	}

	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
		dir:      dir,
		name:     DefaultThemeName,
		scheme:   config.ColorSchemeSystem,
	}
}

// Load resolves name and loads it into the CSS provider.
func (l *Loader) Load(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadLocked(name)
}

func (l *Loader) loadLocked(name string) {
	theme, err := Resolve(name, l.dir)
	if err != nil {
		l.logger.Warn("theme unavailable, using fallback", "requested", name, "theme", theme.Name, "error", err)
	}

	l.provider.LoadFromString(theme.CSS)
	l.name = name
	l.theme = theme
	l.logger.Info("loaded theme", "name", theme.Name, "path", theme.Path, "bundled", theme.Bundled)
}

// Apply attaches the provider to display, or the default display.
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applyColorScheme()
}

// UpdateConfig applies theme settings from a reloaded configuration.
func (l *Loader) UpdateConfig(cfg *config.Config) {
	l.mu.Lock()
	changed := cfg.Theme.Name != l.name
	l.scheme = config.ColorScheme(cfg.Theme.ColorScheme)
	if changed {
		l.loadLocked(cfg.Theme.Name)
	}
	l.mu.Unlock()

	l.applyColorScheme()
}

// Watch reloads the theme when stylesheets in the user themes directory
// change. A missing directory is not an error.
func (l *Loader) Watch(ctx context.Context) {
	if l.dir == "" {
		return
	}

	l.watcher = NewWatcher(l.dir, func() {
		glib.IdleAdd(func() {
			l.mu.Lock()
			l.loadLocked(l.name)
			l.mu.Unlock()
		})
	}, l.logger)

	if err := l.watcher.Start(ctx); err != nil {
		l.logger.Debug("theme hot reload disabled", "error", err)
		l.watcher = nil
	}
}

// Stop stops watching for theme changes.
func (l *Loader) Stop() {
	if l.watcher != nil {
		l.watcher.Stop()
	}
}

// SchemeClass returns "light" or "dark" for the overlay container.
func (l *Loader) SchemeClass() string {
	l.mu.Lock()
	scheme := l.scheme
	l.mu.Unlock()

	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	}
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}

// Current returns the loaded theme.
func (l *Loader) Current() *Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}

func (l *Loader) applyColorScheme() {
	l.mu.Lock()
	scheme := l.scheme
	l.mu.Unlock()

	sm := adw.StyleManagerGetDefault()
	switch scheme {
	case config.ColorSchemeLight:
		sm.SetColorScheme(adw.ColorSchemeForceLight)
	case config.ColorSchemeDark:
		sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		sm.SetColorScheme(adw.ColorSchemeDefault)
	}
}
