package main

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/reqhud/internal/bridge"
	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/dbus"
	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
	"github.com/jmylchreest/reqhud/internal/overlay/overlaytest"
)

type fakeHook struct {
	mu      sync.Mutex
	starts  int
	stops   int
	running bool
}

func (h *fakeHook) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	h.running = true
}

func (h *fakeHook) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	h.running = false
}

func newTestServices(t *testing.T) (*services, *overlay.Controller, *[]*fakeHook) {
	t.Helper()
	ctrl, _, _ := overlaytest.NewController()
	t.Cleanup(ctrl.Close)

	var hooks []*fakeHook
	s := &services{
		logger:   slog.Default(),
		ctrl:     ctrl,
		callback: bridge.NewCallbackClient(bridge.CallbackOptionsFromConfig(config.DefaultConfig()), nil, nil),
		cfg:      config.DefaultConfig(),
	}
	s.newKeyHook = func() keyHook {
		h := &fakeHook{}
		hooks = append(hooks, h)
		return h
	}
	return s, ctrl, &hooks
}

func TestSetGlobalHook(t *testing.T) {
	s, _, hooks := newTestServices(t)

	s.setGlobalHook(true)
	s.setGlobalHook(true)
	require.Len(t, *hooks, 1)
	assert.True(t, (*hooks)[0].running)

	s.setGlobalHook(false)
	s.setGlobalHook(false)
	assert.False(t, (*hooks)[0].running)
	assert.Equal(t, 1, (*hooks)[0].stops)
}

func TestApplyConfig_GlobalHookConcurrent(t *testing.T) {
	s, _, hooks := newTestServices(t)

	on := config.DefaultConfig()
	on.Keys.GlobalHook = true
	off := config.DefaultConfig()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.setGlobalHook(false)
		}()
		go func() {
			defer wg.Done()
			s.applyConfig(on)
		}()
		go func() {
			defer wg.Done()
			s.applyConfig(off)
		}()
	}
	wg.Wait()

	s.shutdown()

	s.mu.Lock()
	assert.Nil(t, s.hotkeys)
	s.mu.Unlock()
	for _, h := range *hooks {
		assert.False(t, h.running)
	}
}

func TestExportDBus_FanoutCompleteBeforeStart(t *testing.T) {
	s, ctrl, _ := newTestServices(t)
	s.responders = bridge.Fanout{s.callback}
	srv := dbus.NewRequestServer(ctrl, nil)

	started := false
	s.exportDBus(srv, func() error {
		started = true
		assert.Contains(t, s.responders, overlay.Responder(srv))
		return nil
	})

	assert.True(t, started)
	assert.Same(t, srv, s.dbusServer)
	assert.Len(t, s.responders, 2)
}

func TestExportDBus_StartFailure(t *testing.T) {
	s, ctrl, _ := newTestServices(t)
	s.responders = bridge.Fanout{s.callback}
	srv := dbus.NewRequestServer(ctrl, nil)

	s.exportDBus(srv, func() error { return errors.New("no session bus") })

	assert.Nil(t, s.dbusServer)
	// The unexported server only logs on Respond.
	assert.NotPanics(t, func() {
		s.responders.Respond(model.Response{RequestID: "r1", Response: model.AnswerDecline})
	})
}
