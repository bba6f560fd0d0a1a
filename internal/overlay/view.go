package overlay

import (
	"time"

	"github.com/jmylchreest/reqhud/internal/model"
)

// CSS classes applied to the overlay container.
const (
	ClassHidden      = "hidden"
	ClassUrgent      = "urgent"
	ClassExpiring    = "expiring"
	ClassBarNormal   = "bar-normal"
	ClassBarExpiring = "bar-expiring"
)

// Change identifies what caused a view update.
type Change int

const (
	ChangeShown     Change = iota // A request became visible (or replaced another)
	ChangeTick                    // One countdown step elapsed
	ChangeExpiring                // The tick that crossed the expiring threshold
	ChangeResponded               // The user answered or the countdown ran out
	ChangeHidden                  // The host withdrew the request
)

// String returns a short name for logs.
func (c Change) String() string {
	switch c {
	case ChangeShown:
		return "shown"
	case ChangeTick:
		return "tick"
	case ChangeExpiring:
		return "expiring"
	case ChangeResponded:
		return "responded"
	case ChangeHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// ViewState is an immutable snapshot of what the overlay shows.
type ViewState struct {
	Seq      uint64 // Increases with every change; frontends drop stale snapshots
	Visible  bool
	Request  model.Request
	TimeLeft int // Seconds remaining
	Total    int // Seconds the countdown started from
	Urgent   bool
	Expiring bool
	ShownAt  time.Time
}

// Fraction returns the remaining share of the countdown in [0,1].
func (v ViewState) Fraction() float64 {
	if !v.Visible || v.Total <= 0 {
		return 0
	}
	f := float64(v.TimeLeft) / float64(v.Total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Percent returns the progress bar width as a percentage.
func (v ViewState) Percent() float64 {
	return v.Fraction() * 100
}

// BarClass returns the gradient class for the progress bar.
func (v ViewState) BarClass() string {
	if v.Expiring {
		return ClassBarExpiring
	}
	return ClassBarNormal
}

// Classes returns the CSS classes the container should carry.
func (v ViewState) Classes() []string {
	if !v.Visible {
		return []string{ClassHidden}
	}
	classes := make([]string, 0, 3)
	if v.Urgent {
		classes = append(classes, ClassUrgent)
	}
	if v.Expiring {
		classes = append(classes, ClassExpiring)
	}
	return append(classes, v.BarClass())
}

// Observer receives every view change. It is called outside the controller
// lock and must not block; GUI frontends hand the snapshot to their main loop.
type Observer func(change Change, view ViewState)
