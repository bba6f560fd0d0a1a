package overlay

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/model"
)

// Responder delivers an answer to the host. Implementations must not block
// for network I/O; the controller calls Respond synchronously.
type Responder interface {
	Respond(resp model.Response)
}

// ResponderFunc adapts a function to a Responder.
type ResponderFunc func(resp model.Response)

// Respond calls f(resp).
func (f ResponderFunc) Respond(resp model.Response) {
	f(resp)
}

// Settings are the tunables the controller reads when a request is shown.
type Settings struct {
	Duration          time.Duration
	ExpiringThreshold time.Duration
	Tick              time.Duration
	AcceptKey         string
	DeclineKey        string
}

// DefaultSettings returns a 30 second countdown with y/n keys.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultConfig())
}

// SettingsFromConfig extracts controller settings from the daemon config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Duration:          cfg.Countdown.Duration.Duration(),
		ExpiringThreshold: cfg.Countdown.ExpiringThreshold.Duration(),
		Tick:              cfg.Countdown.Tick.Duration(),
		AcceptKey:         cfg.Keys.Accept,
		DeclineKey:        cfg.Keys.Decline,
	}
}

// ticks converts d to whole countdown steps.
func (s Settings) ticks(d time.Duration) int {
	if s.Tick <= 0 {
		return 0
	}
	return int(d / s.Tick)
}

// Controller owns the overlay state. All events (host messages, keys,
// button presses and countdown ticks) are serialized through its mutex.
type Controller struct {
	mu        sync.Mutex
	clock     Clock
	responder Responder
	logger    *slog.Logger
	settings  Settings
	observers []Observer

	current   *model.Request
	timeLeft  int // countdown steps remaining
	total     int
	threshold int
	tick      time.Duration
	shownAt   time.Time
	timer     Timer
	gen       uint64 // bumped on every show and cancel; stale ticks compare unequal
	seq       uint64
	closed    bool
}

// NewController creates an idle controller. A nil clock uses the wall clock.
func NewController(settings Settings, responder Responder, clock Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if responder == nil {
		responder = ResponderFunc(func(model.Response) {})
	}
	return &Controller{
		clock:     clock,
		responder: responder,
		logger:    logger,
		settings:  settings,
	}
}

// Subscribe registers an observer for view changes.
func (c *Controller) Subscribe(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// SetSettings replaces the settings. Countdown values apply from the next
// shown request; keys apply immediately.
func (c *Controller) SetSettings(settings Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
	c.logger.Debug("overlay settings updated",
		"duration", settings.Duration,
		"expiring_threshold", settings.ExpiringThreshold)
}

// Show displays req and restarts the countdown. A request already on screen
// is replaced without emitting a response for it.
func (c *Controller) Show(req model.Request) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warn("show ignored, overlay closed", "request_id", req.ID)
		return
	}

	if c.current != nil {
		c.logger.Debug("replacing visible request", "previous_id", c.current.ID, "request_id", req.ID)
	}
	c.cancelLocked()

	r := req
	c.current = &r
	c.tick = c.settings.Tick
	c.total = c.settings.ticks(c.settings.Duration)
	c.threshold = c.settings.ticks(c.settings.ExpiringThreshold)
	c.timeLeft = c.total
	c.shownAt = c.clock.Now()
	c.armLocked()

	view := c.viewLocked()
	observers := c.observers
	c.mu.Unlock()

	c.logger.Info("request shown", "request_id", req.ID, "source", req.SourceName, "time_left", view.TimeLeft)
	notify(observers, ChangeShown, view)
}

// Hide withdraws the visible request without answering it.
func (c *Controller) Hide() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	id := c.current.ID
	c.resetLocked()
	view := c.viewLocked()
	observers := c.observers
	c.mu.Unlock()

	c.logger.Info("request hidden", "request_id", id)
	notify(observers, ChangeHidden, view)
}

// Respond answers the visible request. It does nothing while idle.
func (c *Controller) Respond(accept bool) {
	c.finish(model.AnswerFor(accept), false)
}

// HandleKey answers the visible request when key matches the accept or
// decline key, ignoring case. It reports whether the key was consumed.
func (c *Controller) HandleKey(key string) bool {
	c.mu.Lock()
	active := c.current != nil
	accept, decline := c.settings.AcceptKey, c.settings.DeclineKey
	c.mu.Unlock()

	if !active {
		return false
	}

	switch {
	case strings.EqualFold(key, accept):
		return c.finish(model.AnswerAccept, false)
	case strings.EqualFold(key, decline):
		return c.finish(model.AnswerDecline, false)
	}
	return false
}

// HandleMessage dispatches a decoded host message. Unknown actions are
// logged and reported as model.ErrUnknownAction.
func (c *Controller) HandleMessage(msg model.Message) error {
	if !msg.Action.Known() {
		c.logger.Debug("ignoring message with unknown action", "action", msg.Action)
		return fmt.Errorf("%w: %q", model.ErrUnknownAction, msg.Action)
	}

	switch msg.Action {
	case model.ActionShowRequest:
		var req model.Request
		if msg.Request != nil {
			req = *msg.Request
		}
		c.Show(req)
	case model.ActionHideRequest:
		c.Hide()
	}
	return nil
}

// State returns a snapshot of the current view.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Close cancels any countdown and rejects further requests.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.current = nil
	c.closed = true
}

// finish performs the Active to Idle transition and emits the answer.
func (c *Controller) finish(answer model.Answer, expired bool) bool {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return false
	}
	resp, view, observers := c.finishLocked(answer, expired)
	c.mu.Unlock()

	c.emit(resp, view, observers)
	return true
}

func (c *Controller) finishLocked(answer model.Answer, expired bool) (model.Response, ViewState, []Observer) {
	resp := model.Response{
		RequestID: c.current.ID,
		Response:  answer,
		Expired:   expired,
	}
	c.resetLocked()
	return resp, c.viewLocked(), c.observers
}

func (c *Controller) emit(resp model.Response, view ViewState, observers []Observer) {
	c.logger.Info("request answered", "request_id", resp.RequestID, "response", resp.Response, "expired", resp.Expired)
	c.responder.Respond(resp)
	notify(observers, ChangeResponded, view)
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	if c.current == nil || gen != c.gen {
		c.mu.Unlock()
		return
	}

	wasExpiring := c.expiringLocked()
	c.timeLeft--
	if c.timeLeft <= 0 {
		resp, view, observers := c.finishLocked(model.AnswerDecline, true)
		c.mu.Unlock()
		c.emit(resp, view, observers)
		return
	}

	c.armLocked()
	change := ChangeTick
	if !wasExpiring && c.expiringLocked() {
		change = ChangeExpiring
	}
	view := c.viewLocked()
	observers := c.observers
	c.mu.Unlock()

	notify(observers, change, view)
}

// armLocked schedules the next tick for the current generation.
func (c *Controller) armLocked() {
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.tick, func() { c.onTick(gen) })
}

func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) resetLocked() {
	c.cancelLocked()
	c.current = nil
	c.timeLeft = 0
}

func (c *Controller) expiringLocked() bool {
	return c.current != nil && c.timeLeft <= c.threshold
}

func (c *Controller) viewLocked() ViewState {
	c.seq++
	v := ViewState{Seq: c.seq}
	if c.current == nil {
		return v
	}
	v.Visible = true
	v.Request = *c.current
	v.TimeLeft = c.seconds(c.timeLeft)
	v.Total = c.seconds(c.total)
	v.Urgent = true
	v.Expiring = c.expiringLocked()
	v.ShownAt = c.shownAt
	return v
}

func (c *Controller) seconds(steps int) int {
	return int(time.Duration(steps) * c.tick / time.Second)
}

func notify(observers []Observer, change Change, view ViewState) {
	for _, obs := range observers {
		obs(change, view)
	}
}
