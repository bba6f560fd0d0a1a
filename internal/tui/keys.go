package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	Accept  key.Binding
	Decline key.Binding

	Left  key.Binding
	Right key.Binding
	Next  key.Binding
	Press key.Binding

	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Decline, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Accept, k.Decline},
		{k.Left, k.Right, k.Next, k.Press},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the key bindings for the given answer keys.
// Both cases of each answer key are bound.
func DefaultKeyMap(accept, decline string) KeyMap {
	return KeyMap{
		Accept: key.NewBinding(
			key.WithKeys(bothCases(accept)...),
			key.WithHelp(strings.ToLower(accept), "accept"),
		),
		Decline: key.NewBinding(
			key.WithKeys(bothCases(decline)...),
			key.WithHelp(strings.ToLower(decline), "decline"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous button"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next button"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch button"),
		),
		Press: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "press button"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func bothCases(k string) []string {
	lower, upper := strings.ToLower(k), strings.ToUpper(k)
	if lower == upper {
		return []string{k}
	}
	return []string{lower, upper}
}
