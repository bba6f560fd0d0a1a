package audio

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// Cue is a moment in a request's life that can have a sound.
type Cue string

const (
	CueShow     Cue = "show"
	CueExpiring Cue = "expiring"
)

// Manager maps overlay changes to cue sounds.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher
	enabled bool
	sounds  map[Cue]string

	// play is swapped out in tests to avoid opening the speaker.
	play func(path string) error
}

// NewManager creates a new audio manager.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	player := NewPlayer(logger)
	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		sounds:  make(map[Cue]string),
		play:    player.Play,
	}
	m.applyConfig(cfg)
	return m
}

// applyConfig resolves sound paths, skipping missing files.
func (m *Manager) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)

	sounds := make(map[Cue]string)
	for cue, path := range map[Cue]string{
		CueShow:     cfg.Audio.Sounds.Show,
		CueExpiring: cfg.Audio.Sounds.Expiring,
	} {
		if path == "" {
			continue
		}
		expanded := filepath.Clean(config.ExpandPath(path))
		if _, err := os.Stat(expanded); err != nil {
			m.logger.Warn("sound file not found", "cue", cue, "path", expanded)
			continue
		}
		sounds[cue] = expanded
		m.logger.Debug("loaded sound", "cue", cue, "path", expanded)
	}

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.sounds = sounds
	m.mu.Unlock()
}

// Start preloads the configured sounds and watches them for changes.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.watcher.Start(ctx); err != nil {
		return err
	}
	m.preloadAndWatch()

	m.logger.Info("audio manager started", "sounds", len(m.Sounds()))
	return nil
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// Sounds returns the resolved sound path per cue.
func (m *Manager) Sounds() map[Cue]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Cue]string, len(m.sounds))
	for k, v := range m.sounds {
		out[k] = v
	}
	return out
}

// PlayCue plays the sound configured for cue, if any.
func (m *Manager) PlayCue(cue Cue) error {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.sounds[cue]
	play := m.play
	m.mu.RUnlock()

	if !enabled || !ok {
		return nil
	}
	return play(path)
}

// Observe implements overlay.Observer. Playback runs off the caller's
// goroutine so the controller is never held up by the speaker.
func (m *Manager) Observe(change overlay.Change, _ overlay.ViewState) {
	var cue Cue
	switch change {
	case overlay.ChangeShown:
		cue = CueShow
	case overlay.ChangeExpiring:
		cue = CueExpiring
	default:
		return
	}

	go func() {
		if err := m.PlayCue(cue); err != nil {
			m.logger.Warn("failed to play sound", "cue", cue, "error", err)
		}
	}()
}

// UpdateConfig applies a hot-reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	for _, path := range m.Sounds() {
		m.watcher.Unwatch(path)
	}
	m.player.ClearCache()
	m.applyConfig(cfg)
	m.preloadAndWatch()
	m.logger.Debug("audio manager config updated")
}

func (m *Manager) preloadAndWatch() {
	for cue, path := range m.Sounds() {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "cue", cue, "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}
}
