package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts of the resolver.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Type   key.Binding
	Widen  key.Binding
	Narrow key.Binding
	Skip   key.Binding
	Cancel key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "use amount"),
		),
		Type: key.NewBinding(
			key.WithKeys("e", "tab"),
			key.WithHelp("e/Tab", "type amount"),
		),
		Widen: key.NewBinding(
			key.WithKeys("+", "w"),
			key.WithHelp("+/w", "wider context"),
		),
		Narrow: key.NewBinding(
			key.WithKeys("-", "n"),
			key.WithHelp("-/n", "narrower context"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back to list"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "stop reviewing"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Type, k.Skip, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Type, k.Cancel, k.Skip},
		{k.Widen, k.Narrow},
		{k.Help, k.Quit},
	}
}
