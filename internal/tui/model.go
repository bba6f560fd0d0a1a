// Package tui renders the request overlay in a terminal with BubbleTea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// Controller is the part of overlay.Controller the TUI drives.
type Controller interface {
	Respond(accept bool)
	HandleKey(key string) bool
	State() overlay.ViewState
	Subscribe(obs overlay.Observer)
}

// Button identifies an answer button.
type Button int

const (
	ButtonAccept Button = iota
	ButtonDecline
)

// Progress bar gradients, matching the bundled GTK theme.
const (
	normalFrom   = "#FF7A00"
	normalTo     = "#FFB347"
	expiringFrom = "#C0161B"
	expiringTo   = "#FF5A5F"
)

var (
	urgentBorder   = lipgloss.Color("#FF9F1A")
	expiringBorder = lipgloss.Color("#E5484D")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	fromStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 1)
	acceptStyle  = buttonStyle.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2F9E44"))
	declineStyle = buttonStyle.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C92A2A"))
	blurredStyle = buttonStyle.Foreground(lipgloss.Color("7")).Background(lipgloss.Color("236"))
)

// viewMsg carries a controller snapshot into the program.
type viewMsg struct {
	change overlay.Change
	view   overlay.ViewState
}

// Model is the overlay TUI model.
type Model struct {
	ctrl Controller
	keys KeyMap
	help help.Model

	normalBar   progress.Model
	expiringBar progress.Model

	view     overlay.ViewState
	focus    Button
	width    int
	height   int
	showHelp bool
	cardW    int
}

// New creates a new TUI model.
func New(ctrl Controller, cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	cardW := cfg.Display.Width / 8
	if cardW < 30 {
		cardW = 30
	}

	barW := cardW - 4
	return Model{
		ctrl:        ctrl,
		keys:        DefaultKeyMap(cfg.Keys.Accept, cfg.Keys.Decline),
		help:        help.New(),
		normalBar:   progress.New(progress.WithGradient(normalFrom, normalTo), progress.WithWidth(barW), progress.WithoutPercentage()),
		expiringBar: progress.New(progress.WithGradient(expiringFrom, expiringTo), progress.WithWidth(barW), progress.WithoutPercentage()),
		view:        ctrl.State(),
		cardW:       cardW,
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		if msg.view.Seq >= m.view.Seq {
			if msg.change == overlay.ChangeShown {
				m.focus = ButtonAccept
			}
			m.view = msg.view
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	if !m.view.Visible {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Accept), key.Matches(msg, m.keys.Decline):
		m.ctrl.HandleKey(msg.String())
	case key.Matches(msg, m.keys.Left):
		m.focus = ButtonAccept
	case key.Matches(msg, m.keys.Right):
		m.focus = ButtonDecline
	case key.Matches(msg, m.keys.Next):
		m.focus = 1 - m.focus
	case key.Matches(msg, m.keys.Press):
		m.ctrl.Respond(m.focus == ButtonAccept)
	}
	return m, nil
}

// handleMouse presses a button on left click.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.view.Visible || msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	if b, ok := m.buttonAt(msg.X, msg.Y); ok {
		m.focus = b
		m.ctrl.Respond(b == ButtonAccept)
	}
	return m, nil
}

// buttonAt maps a terminal cell to the button drawn there.
func (m Model) buttonAt(x, y int) (Button, bool) {
	l := m.layout()
	if y != l.buttonRow {
		return 0, false
	}
	switch {
	case x >= l.accept[0] && x < l.accept[1]:
		return ButtonAccept, true
	case x >= l.decline[0] && x < l.decline[1]:
		return ButtonDecline, true
	}
	return 0, false
}

// cardLayout is the rendered card plus the cells its buttons occupy.
type cardLayout struct {
	card      string
	buttonRow int
	accept    [2]int
	decline   [2]int
}

func (m Model) layout() cardLayout {
	v := m.view
	inner := m.cardW - 4

	bar := m.normalBar
	border := urgentBorder
	if v.Expiring {
		bar = m.expiringBar
		border = expiringBorder
	}

	lines := []string{
		titleStyle.Width(inner).Render(v.Request.Title),
		fromStyle.Width(inner).Render(v.Request.From()),
	}
	if v.Request.Description != "" {
		lines = append(lines, lipgloss.NewStyle().Width(inner).Render(v.Request.Description))
	}
	lines = append(lines,
		"",
		bar.ViewAs(v.Fraction()),
		fmt.Sprintf("%ds", v.TimeLeft),
		"",
	)

	accept := m.renderButton(ButtonAccept, fmt.Sprintf("[%s] Accept", strings.ToUpper(m.keys.Accept.Help().Key)))
	decline := m.renderButton(ButtonDecline, fmt.Sprintf("[%s] Decline", strings.ToUpper(m.keys.Decline.Help().Key)))
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, accept, "  ", decline)

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	content := lipgloss.JoinVertical(lipgloss.Left, body, buttons)

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(m.cardW - 2).
		Render(content)

	// Border and padding offset the content by one row and two columns.
	row := 1 + lipgloss.Height(body)
	x0 := 2
	acceptW := lipgloss.Width(accept)
	declineX := x0 + acceptW + 2

	return cardLayout{
		card:      card,
		buttonRow: row,
		accept:    [2]int{x0, x0 + acceptW},
		decline:   [2]int{declineX, declineX + lipgloss.Width(decline)},
	}
}

func (m Model) renderButton(b Button, label string) string {
	if b != m.focus {
		return blurredStyle.Render(label)
	}
	if b == ButtonAccept {
		return acceptStyle.Render(label)
	}
	return declineStyle.Render(label)
}

// View renders the TUI.
func (m Model) View() string {
	var s string
	if m.view.Visible {
		s = m.layout().card
	} else {
		s = idleStyle.Render("Waiting for requests…")
	}

	if m.showHelp {
		s += "\n\n" + m.help.FullHelpView(m.keys.FullHelp())
	} else {
		s += "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return s
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, cfg *config.Config) error {
	p := tea.NewProgram(
		New(ctrl, cfg),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	ctrl.Subscribe(func(change overlay.Change, view overlay.ViewState) {
		go p.Send(viewMsg{change: change, view: view})
	})

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
