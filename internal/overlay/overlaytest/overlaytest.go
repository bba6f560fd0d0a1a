// Package overlaytest provides a manual clock and recording helpers for
// exercising the overlay controller deterministically.
package overlaytest

import (
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// Clock is an overlay.Clock that only moves when Advance is called.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewClock returns a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f at Now()+d.
func (c *Clock) AfterFunc(d time.Duration, f func()) overlay.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer, reporting whether it was still pending.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing due timers in order on the
// calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// FireStopped runs the callbacks of timers that were stopped, simulating a
// tick that was already in flight when it was cancelled.
func (c *Clock) FireStopped() {
	c.mu.Lock()
	var stale []*timer
	for _, t := range c.timers {
		if t.stopped && !t.fired {
			t.fired = true
			stale = append(stale, t)
		}
	}
	c.mu.Unlock()

	for _, t := range stale {
		t.f()
	}
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	var due []*timer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	return due[0]
}

// Recorder is an overlay.Responder that keeps every response.
type Recorder struct {
	mu        sync.Mutex
	responses []model.Response
}

// Respond records resp.
func (r *Recorder) Respond(resp model.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

// Responses returns a copy of the recorded responses.
func (r *Recorder) Responses() []model.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Response, len(r.responses))
	copy(out, r.responses)
	return out
}

// ChangeLog records observer notifications.
type ChangeLog struct {
	mu      sync.Mutex
	changes []overlay.Change
	views   []overlay.ViewState
}

// Observe is an overlay.Observer.
func (l *ChangeLog) Observe(change overlay.Change, view overlay.ViewState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, change)
	l.views = append(l.views, view)
}

// Changes returns the recorded change kinds.
func (l *ChangeLog) Changes() []overlay.Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]overlay.Change, len(l.changes))
	copy(out, l.changes)
	return out
}

// Last returns the most recent view, or the zero value.
func (l *ChangeLog) Last() overlay.ViewState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.views) == 0 {
		return overlay.ViewState{}
	}
	return l.views[len(l.views)-1]
}

// Epoch is a fixed start time for tests.
var Epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// NewController returns a controller with default settings wired to a
// manual clock and a recorder.
func NewController() (*overlay.Controller, *Clock, *Recorder) {
	clock := NewClock(Epoch)
	rec := &Recorder{}
	return overlay.NewController(overlay.DefaultSettings(), rec, clock, nil), clock, rec
}
