package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
	"github.com/jmylchreest/reqhud/internal/overlay/overlaytest"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// showing returns a model whose controller displays the backup request.
func showing(t *testing.T) (Model, *overlay.Controller, *overlaytest.Clock, *overlaytest.Recorder) {
	t.Helper()
	ctrl, clock, rec := overlaytest.NewController()
	t.Cleanup(ctrl.Close)

	m := New(ctrl, nil)
	ctrl.Show(model.Request{ID: "r1", Title: "Backup", SourceName: "Dispatch", Description: "Need backup"})
	m = update(t, m, viewMsg{change: overlay.ChangeShown, view: ctrl.State()})
	return m, ctrl, clock, rec
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestView_Idle(t *testing.T) {
	ctrl, _, _ := overlaytest.NewController()
	defer ctrl.Close()

	view := New(ctrl, nil).View()
	assert.Contains(t, view, "Waiting for requests")
	assert.NotContains(t, view, "Accept")
}

func TestView_ShowsRequest(t *testing.T) {
	m, _, _, _ := showing(t)

	view := m.View()
	assert.Contains(t, view, "Backup")
	assert.Contains(t, view, "From: Dispatch")
	assert.Contains(t, view, "Need backup")
	assert.Contains(t, view, "30s")
	assert.Contains(t, view, "[Y] Accept")
	assert.Contains(t, view, "[N] Decline")
}

func TestKey_Decline(t *testing.T) {
	m, ctrl, _, rec := showing(t)

	update(t, m, runes("n"))

	assert.Equal(t, []model.Response{
		{RequestID: "r1", Response: model.AnswerDecline},
	}, rec.Responses())
	assert.False(t, ctrl.State().Visible)
}

func TestKey_AcceptUppercase(t *testing.T) {
	m, _, _, rec := showing(t)

	update(t, m, runes("Y"))

	require.Len(t, rec.Responses(), 1)
	assert.Equal(t, model.AnswerAccept, rec.Responses()[0].Response)
}

func TestKey_IgnoredWhileIdle(t *testing.T) {
	ctrl, _, rec := overlaytest.NewController()
	defer ctrl.Close()

	m := New(ctrl, nil)
	m = update(t, m, runes("y"))
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, rec.Responses())
}

func TestKey_FocusAndPress(t *testing.T) {
	m, _, _, rec := showing(t)
	assert.Equal(t, ButtonAccept, m.focus)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, ButtonDecline, m.focus)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ButtonAccept, m.focus)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, ButtonAccept, m.focus)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, rec.Responses(), 1)
	assert.Equal(t, model.AnswerDecline, rec.Responses()[0].Response)
}

func TestKey_QuitDoesNotRespond(t *testing.T) {
	m, ctrl, _, rec := showing(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, rec.Responses())
	assert.True(t, ctrl.State().Visible)
}

func TestKey_HelpToggle(t *testing.T) {
	m, _, _, _ := showing(t)

	m = update(t, m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "switch button")
}

func TestMouse_ClickButtons(t *testing.T) {
	tests := []struct {
		name   string
		button Button
		want   model.Answer
	}{
		{"accept", ButtonAccept, model.AnswerAccept},
		{"decline", ButtonDecline, model.AnswerDecline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _, rec := showing(t)

			l := m.layout()
			x := l.accept[0]
			if tt.button == ButtonDecline {
				x = l.decline[0]
			}

			update(t, m, tea.MouseMsg{X: x, Y: l.buttonRow, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

			require.Len(t, rec.Responses(), 1)
			assert.Equal(t, tt.want, rec.Responses()[0].Response)
		})
	}
}

func TestMouse_MissesButtons(t *testing.T) {
	m, _, _, rec := showing(t)

	l := m.layout()
	update(t, m, tea.MouseMsg{X: l.accept[0], Y: l.buttonRow - 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	update(t, m, tea.MouseMsg{X: l.accept[0], Y: l.buttonRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	update(t, m, tea.MouseMsg{X: l.accept[0], Y: l.buttonRow, Action: tea.MouseActionRelease, Button: tea.MouseButtonRight})

	assert.Empty(t, rec.Responses())
}

func TestViewMsg_DropsStaleSnapshots(t *testing.T) {
	m, ctrl, clock, _ := showing(t)

	clock.Advance(20 * time.Second)
	fresh := ctrl.State()
	m = update(t, m, viewMsg{change: overlay.ChangeTick, view: fresh})
	assert.True(t, m.view.Expiring)
	assert.Equal(t, 10, m.view.TimeLeft)

	stale := fresh
	stale.Seq = fresh.Seq - 1
	stale.TimeLeft = 25
	m = update(t, m, viewMsg{change: overlay.ChangeTick, view: stale})
	assert.Equal(t, 10, m.view.TimeLeft)
}

func TestViewMsg_Hidden(t *testing.T) {
	m, ctrl, _, _ := showing(t)

	ctrl.Hide()
	m = update(t, m, viewMsg{change: overlay.ChangeHidden, view: ctrl.State()})
	assert.Contains(t, m.View(), "Waiting for requests")
}

func TestDefaultKeyMap_CustomKeys(t *testing.T) {
	keys := DefaultKeyMap("a", "d")
	assert.Equal(t, []string{"a", "A"}, keys.Accept.Keys())
	assert.Equal(t, "d", keys.Decline.Help().Key)
	assert.Equal(t, []string{"1"}, bothCases("1"))
}
