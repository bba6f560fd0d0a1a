package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/reqhud/internal/audio"
	"github.com/jmylchreest/reqhud/internal/bridge"
	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/daemon"
	"github.com/jmylchreest/reqhud/internal/dbus"
	"github.com/jmylchreest/reqhud/internal/hotkey"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// services holds everything that runs independently of the frontend.
type services struct {
	logger *slog.Logger

	ctrl          *overlay.Controller
	callback      *bridge.CallbackClient
	responders    bridge.Fanout
	server        *bridge.Server
	dbusServer    *dbus.RequestServer
	audioManager  *audio.Manager
	configWatcher *daemon.ConfigWatcher

	// newKeyHook is replaced in tests.
	newKeyHook func() keyHook

	mu       sync.Mutex
	cfg      *config.Config
	reloadFn []func(*config.Config)
	hotkeys  keyHook
}

// keyHook is a global key listener. *hotkey.Listener satisfies it.
type keyHook interface {
	Start()
	Stop()
}

// startServices builds the controller and starts every transport around it.
func startServices(ctx context.Context, cfg *config.Config, configPath string, stdio bool, logger *slog.Logger) (*services, error) {
	s := &services{logger: logger, cfg: cfg}
	s.newKeyHook = func() keyHook { return hotkey.NewListener(s.ctrl, logger) }

	s.callback = bridge.NewCallbackClient(bridge.CallbackOptionsFromConfig(cfg), &http.Client{}, logger)
	s.responders = bridge.Fanout{s.callback}
	if stdio {
		s.responders = append(s.responders, bridge.NewLineWriter(os.Stdout, logger))
	}

	// The fanout is only extended below, before any transport is started.
	s.ctrl = overlay.NewController(overlay.SettingsFromConfig(cfg), &s.responders, overlay.SystemClock{}, logger)

	if cfg.DBus.Enabled {
		srv := dbus.NewRequestServer(s.ctrl, logger)
		info := dbus.DefaultServerInfo()
		info.Version = version
		srv.SetServerInfo(info)
		s.exportDBus(srv, srv.Start)
	}

	s.audioManager = audio.NewManager(cfg, logger)
	if err := s.audioManager.Start(ctx); err != nil {
		logger.Warn("failed to start audio manager", "error", err)
	}
	s.ctrl.Subscribe(s.audioManager.Observe)
	s.onReload(s.audioManager.UpdateConfig)

	s.setGlobalHook(cfg.Keys.GlobalHook)

	s.server = bridge.NewServer(cfg.Bridge.Listen, s.ctrl, logger)
	if err := s.server.Start(); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("failed to start bridge server: %w", err)
	}

	if stdio {
		reader := bridge.NewLineReader(os.Stdin, s.ctrl, logger)
		go func() {
			if err := reader.Run(ctx); err != nil {
				logger.Warn("stdin reader stopped", "error", err)
			}
		}()
	}

	s.startConfigWatcher(ctx, configPath)
	return s, nil
}

// exportDBus joins srv to the fanout and then exports it with start, so the
// fanout is complete before the bus can deliver a request. An unexported
// server stays in the fanout; its Respond is a no-op without a bus.
func (s *services) exportDBus(srv *dbus.RequestServer, start func() error) {
	s.responders = append(s.responders, srv)
	if err := start(); err != nil {
		s.logger.Warn("D-Bus bridge disabled", "error", err)
		return
	}
	s.dbusServer = srv
}

// setGlobalHook starts or stops the global key hook.
func (s *services) setGlobalHook(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case enabled && s.hotkeys == nil:
		s.hotkeys = s.newKeyHook()
		s.hotkeys.Start()
	case !enabled && s.hotkeys != nil:
		s.hotkeys.Stop()
		s.hotkeys = nil
	}
}

func (s *services) startConfigWatcher(ctx context.Context, path string) {
	w, err := daemon.NewConfigWatcher(path, s.logger)
	if err != nil {
		s.logger.Warn("failed to create config watcher", "error", err)
		return
	}

	w.SetReloadCallback(s.applyConfig)
	w.SetErrorCallback(func(err error) {
		s.logger.Error("ignoring invalid config", "path", w.Path(), "error", err)
	})

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if err := w.Start(ctx, cfg); err != nil {
		s.logger.Warn("failed to start config watcher", "error", err)
		return
	}
	s.configWatcher = w
}

// onReload registers fn to receive every successfully reloaded config.
func (s *services) onReload(fn func(*config.Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadFn = append(s.reloadFn, fn)
}

func (s *services) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	fns := append([]func(*config.Config){}, s.reloadFn...)
	s.mu.Unlock()

	s.ctrl.SetSettings(overlay.SettingsFromConfig(cfg))
	s.callback.SetOptions(bridge.CallbackOptionsFromConfig(cfg))

	if cfg.Bridge.Listen != prev.Bridge.Listen {
		s.logger.Warn("bridge.listen changed, restart reqhudd to apply", "listen", cfg.Bridge.Listen)
	}
	if cfg.Display.Frontend != prev.Display.Frontend {
		s.logger.Warn("display.frontend changed, restart reqhudd to apply", "frontend", cfg.Display.Frontend)
	}
	if cfg.DBus.Enabled != prev.DBus.Enabled {
		s.logger.Warn("dbus.enabled changed, restart reqhudd to apply")
	}

	if cfg.Keys.GlobalHook != prev.Keys.GlobalHook {
		s.setGlobalHook(cfg.Keys.GlobalHook)
	}

	for _, fn := range fns {
		fn(cfg)
	}
}

// shutdown stops transports first so no new request arrives, then the
// controller, then waits for in-flight callbacks.
func (s *services) shutdown() {
	if s.configWatcher != nil {
		s.configWatcher.Stop()
	}
	s.setGlobalHook(false)
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("error stopping bridge server", "error", err)
		}
		cancel()
	}
	if s.dbusServer != nil {
		if err := s.dbusServer.Stop(); err != nil {
			s.logger.Warn("error stopping D-Bus server", "error", err)
		}
	}

	s.ctrl.Close()
	s.callback.Wait()

	if s.audioManager != nil {
		s.audioManager.Stop()
	}
}
