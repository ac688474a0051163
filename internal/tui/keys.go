package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quick   key.Binding
	Toggle  key.Binding
	Invoice key.Binding
	History key.Binding
	Export  key.Binding
	Search  key.Binding
	Command key.Binding
	Refresh key.Binding
	Close   key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quick:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "quick action")),
		Toggle:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle status")),
		Invoice: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invoice")),
		History: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export customers")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Command: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "run action")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close dialog")),
		Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss message")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quick, k.Toggle, k.Search, k.Command, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Quick, k.Toggle, k.Invoice},
		{k.History, k.Export, k.Search, k.Command, k.Refresh},
		{k.Close, k.Dismiss, k.Help, k.Quit},
	}
}
