package workflow

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings available on every step.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the global key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
	}
}

// ShortHelp returns the global bindings.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.ForceQuit}
}

// FullHelp returns the global bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
