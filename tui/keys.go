package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Open    key.Binding
	Next    key.Binding
	Prev    key.Binding
	Refresh key.Binding
	Back    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Next, k.Refresh, k.Back, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Next, k.Prev},
		{k.Refresh, k.Back, k.Help, k.Quit},
	}
}

// setView enables the bindings that apply to v. Disabled bindings neither
// match nor show up in help.
func (k *keyMap) setView(v view) {
	transcript := v == viewTranscript
	k.Next.SetEnabled(transcript)
	k.Prev.SetEnabled(transcript)
	k.Back.SetEnabled(transcript)
	if transcript {
		k.Open.SetHelp("enter", "expand")
	} else {
		k.Open.SetHelp("enter", "open")
	}
}

func newKeyMap() keyMap {
	k := keyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next agent"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev agent"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
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
	k.setView(viewSessions)
	return k
}
