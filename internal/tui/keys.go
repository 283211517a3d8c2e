package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the progress view.
type KeyMap struct {
	Cancel key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "q", "esc"),
			key.WithHelp("ctrl+c", "cancel and roll back"),
		),
	}
}

// HelpText returns a formatted help string for the progress view.
func (k KeyMap) HelpText() string {
	h := k.Cancel.Help()
	return h.Key + " " + h.Desc
}
