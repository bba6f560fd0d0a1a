package overlay_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
	"github.com/jmylchreest/reqhud/internal/overlay/overlaytest"
)

func backupRequest() model.Request {
	return model.Request{
		ID:          "r1",
		Title:       "Backup",
		SourceName:  "Dispatch",
		Description: "Need backup",
	}
}

func TestShow_RendersRequest(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())

	view := ctrl.State()
	assert.True(t, view.Visible)
	assert.Equal(t, 30, view.TimeLeft)
	assert.Equal(t, 30, view.Total)
	assert.Equal(t, "Backup", view.Request.Title)
	assert.Equal(t, "From: Dispatch", view.Request.From())
	assert.Equal(t, "Need backup", view.Request.Description)
	assert.InDelta(t, 100.0, view.Percent(), 0.001)
	assert.True(t, view.Urgent)
	assert.False(t, view.Expiring)
	assert.Equal(t, overlaytest.Epoch, view.ShownAt)
	assert.Equal(t, 1, clock.Pending())
	assert.Empty(t, rec.Responses())
}

func TestScenario_DeclineWithKey(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	assert.True(t, ctrl.HandleKey("n"))

	assert.Equal(t, []model.Response{
		{RequestID: "r1", Response: model.AnswerDecline, Expired: false},
	}, rec.Responses())
	assert.False(t, ctrl.State().Visible)
	assert.Equal(t, 0, clock.Pending())
}

func TestScenario_ExpiresAfterCountdown(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())

	clock.Advance(29 * time.Second)
	assert.Empty(t, rec.Responses(), "no response before the 30th tick")
	assert.Equal(t, 1, ctrl.State().TimeLeft)

	clock.Advance(time.Second)
	assert.Equal(t, []model.Response{
		{RequestID: "r1", Response: model.AnswerDecline, Expired: true},
	}, rec.Responses())
	assert.False(t, ctrl.State().Visible)

	clock.Advance(time.Minute)
	assert.Len(t, rec.Responses(), 1)
}

func TestScenario_HideBeforeFirstTick(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	ctrl.Hide()

	assert.False(t, ctrl.State().Visible)
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Minute)
	assert.Empty(t, rec.Responses())
}

func TestRespond_ExactlyOnce(t *testing.T) {
	tests := []struct {
		name   string
		accept bool
		want   model.Answer
	}{
		{"accept", true, model.AnswerAccept},
		{"decline", false, model.AnswerDecline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, clock, rec := overlaytest.NewController()
			defer ctrl.Close()

			ctrl.Show(backupRequest())
			clock.Advance(5 * time.Second)
			ctrl.Respond(tt.accept)
			ctrl.Respond(!tt.accept)
			clock.Advance(time.Minute)

			require.Len(t, rec.Responses(), 1)
			assert.Equal(t, tt.want, rec.Responses()[0].Response)
			assert.False(t, rec.Responses()[0].Expired)
		})
	}
}

func TestRespond_IdleIsNoop(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	before := ctrl.State()
	ctrl.Respond(true)
	ctrl.Respond(false)
	after := ctrl.State()

	assert.Empty(t, rec.Responses())
	assert.False(t, after.Visible)
	assert.Equal(t, before.Request, after.Request)
	assert.Equal(t, 0, clock.Pending())
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		key     string
		handled bool
		want    model.Answer
	}{
		{"y", true, model.AnswerAccept},
		{"Y", true, model.AnswerAccept},
		{"n", true, model.AnswerDecline},
		{"N", true, model.AnswerDecline},
		{"x", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run("key "+tt.key, func(t *testing.T) {
			ctrl, _, rec := overlaytest.NewController()
			defer ctrl.Close()

			ctrl.Show(backupRequest())
			assert.Equal(t, tt.handled, ctrl.HandleKey(tt.key))

			if !tt.handled {
				assert.Empty(t, rec.Responses())
				assert.True(t, ctrl.State().Visible)
				return
			}
			require.Len(t, rec.Responses(), 1)
			assert.Equal(t, tt.want, rec.Responses()[0].Response)
		})
	}
}

func TestHandleKey_IgnoredWhileIdle(t *testing.T) {
	ctrl, _, rec := overlaytest.NewController()
	defer ctrl.Close()

	assert.False(t, ctrl.HandleKey("y"))
	assert.False(t, ctrl.HandleKey("n"))
	assert.Empty(t, rec.Responses())
}

func TestHandleKey_CustomKeys(t *testing.T) {
	settings := overlay.DefaultSettings()
	settings.AcceptKey = "a"
	settings.DeclineKey = "d"
	rec := &overlaytest.Recorder{}
	ctrl := overlay.NewController(settings, rec, overlaytest.NewClock(overlaytest.Epoch), nil)
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	assert.False(t, ctrl.HandleKey("y"))
	assert.True(t, ctrl.HandleKey("A"))
	require.Len(t, rec.Responses(), 1)
	assert.Equal(t, model.AnswerAccept, rec.Responses()[0].Response)
}

func TestCountdown_ExpiringThreshold(t *testing.T) {
	ctrl, clock, _ := overlaytest.NewController()
	defer ctrl.Close()

	log := &overlaytest.ChangeLog{}
	ctrl.Subscribe(log.Observe)

	ctrl.Show(backupRequest())

	clock.Advance(19 * time.Second)
	view := ctrl.State()
	assert.Equal(t, 11, view.TimeLeft)
	assert.False(t, view.Expiring)
	assert.Equal(t, overlay.ClassBarNormal, view.BarClass())

	clock.Advance(time.Second)
	view = ctrl.State()
	assert.Equal(t, 10, view.TimeLeft)
	assert.True(t, view.Expiring)
	assert.Equal(t, overlay.ClassBarExpiring, view.BarClass())
	assert.InDelta(t, 10.0/30.0, view.Fraction(), 0.0001)
	assert.Equal(t, []string{overlay.ClassUrgent, overlay.ClassExpiring, overlay.ClassBarExpiring}, view.Classes())

	changes := log.Changes()
	assert.Equal(t, overlay.ChangeShown, changes[0])
	assert.Equal(t, overlay.ChangeExpiring, changes[len(changes)-1])

	expiring := 0
	clock.Advance(5 * time.Second)
	for _, c := range log.Changes() {
		if c == overlay.ChangeExpiring {
			expiring++
		}
	}
	assert.Equal(t, 1, expiring, "threshold crossing is reported once")
}

func TestCountdown_FractionDecreases(t *testing.T) {
	ctrl, clock, _ := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	prev := ctrl.State().Fraction()
	for i := 0; i < 29; i++ {
		clock.Advance(time.Second)
		f := ctrl.State().Fraction()
		assert.Less(t, f, prev)
		prev = f
	}
}

func TestShow_ReplacesWithoutResponding(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	clock.Advance(12 * time.Second)

	second := model.Request{ID: "r2", Title: "Tow", SourceName: "Mechanic"}
	ctrl.Show(second)

	assert.Empty(t, rec.Responses())
	assert.Equal(t, 1, clock.Pending(), "at most one countdown is live")

	view := ctrl.State()
	assert.Equal(t, "r2", view.Request.ID)
	assert.Equal(t, 30, view.TimeLeft)

	clock.Advance(30 * time.Second)
	assert.Equal(t, []model.Response{
		{RequestID: "r2", Response: model.AnswerDecline, Expired: true},
	}, rec.Responses())
}

func TestStaleTickIsDiscarded(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())
	ctrl.Hide()
	clock.FireStopped()

	assert.False(t, ctrl.State().Visible)
	assert.Empty(t, rec.Responses())

	ctrl.Show(backupRequest())
	ctrl.Show(model.Request{ID: "r2"})
	clock.FireStopped()
	assert.Equal(t, 30, ctrl.State().TimeLeft, "cancelled tick from the old generation does not count")
}

func TestHide_WhileIdle(t *testing.T) {
	ctrl, _, rec := overlaytest.NewController()
	defer ctrl.Close()

	log := &overlaytest.ChangeLog{}
	ctrl.Subscribe(log.Observe)

	ctrl.Hide()
	assert.Empty(t, log.Changes())
	assert.Empty(t, rec.Responses())
}

func TestObservers_SeeTransitions(t *testing.T) {
	ctrl, clock, _ := overlaytest.NewController()
	defer ctrl.Close()

	log := &overlaytest.ChangeLog{}
	ctrl.Subscribe(log.Observe)

	ctrl.Show(backupRequest())
	clock.Advance(time.Second)
	ctrl.Respond(true)
	ctrl.Show(backupRequest())
	ctrl.Hide()

	assert.Equal(t, []overlay.Change{
		overlay.ChangeShown,
		overlay.ChangeTick,
		overlay.ChangeResponded,
		overlay.ChangeShown,
		overlay.ChangeHidden,
	}, log.Changes())

	last := log.Last()
	assert.False(t, last.Visible)
	assert.Equal(t, []string{overlay.ClassHidden}, last.Classes())
}

func TestHandleMessage(t *testing.T) {
	ctrl, _, rec := overlaytest.NewController()
	defer ctrl.Close()

	req := backupRequest()
	require.NoError(t, ctrl.HandleMessage(model.ShowMessage(req)))
	assert.True(t, ctrl.State().Visible)

	err := ctrl.HandleMessage(model.Message{Action: "openMenu"})
	assert.True(t, errors.Is(err, model.ErrUnknownAction))
	assert.True(t, ctrl.State().Visible, "unknown actions leave state untouched")

	err = ctrl.HandleMessage(model.Message{})
	assert.ErrorIs(t, err, model.ErrUnknownAction)
	assert.True(t, ctrl.State().Visible)

	require.NoError(t, ctrl.HandleMessage(model.HideMessage()))
	assert.False(t, ctrl.State().Visible)
	assert.Empty(t, rec.Responses())
}

func TestHandleMessage_ShowWithoutRequest(t *testing.T) {
	ctrl, _, _ := overlaytest.NewController()
	defer ctrl.Close()

	require.NoError(t, ctrl.HandleMessage(model.Message{Action: model.ActionShowRequest}))
	view := ctrl.State()
	assert.True(t, view.Visible)
	assert.Empty(t, view.Request.ID)
	assert.Equal(t, "From: ", view.Request.From())
}

func TestSetSettings_AppliesToNextShow(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()
	defer ctrl.Close()

	ctrl.Show(backupRequest())

	settings := overlay.DefaultSettings()
	settings.Duration = 5 * time.Second
	settings.ExpiringThreshold = 2 * time.Second
	ctrl.SetSettings(settings)
	assert.Equal(t, 30, ctrl.State().TimeLeft)

	ctrl.Show(backupRequest())
	assert.Equal(t, 5, ctrl.State().TimeLeft)

	clock.Advance(5 * time.Second)
	require.Len(t, rec.Responses(), 1)
	assert.True(t, rec.Responses()[0].Expired)
}

func TestClose_ReleasesTimer(t *testing.T) {
	ctrl, clock, rec := overlaytest.NewController()

	ctrl.Show(backupRequest())
	ctrl.Close()

	assert.Equal(t, 0, clock.Pending())
	assert.False(t, ctrl.State().Visible)

	ctrl.Show(backupRequest())
	assert.False(t, ctrl.State().Visible)
	clock.Advance(time.Minute)
	assert.Empty(t, rec.Responses())
}

func TestSystemClock(t *testing.T) {
	fired := make(chan struct{})
	timer := overlay.SystemClock{}.AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop())
}
