package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Queue navigation
	QueueUp   key.Binding
	QueueDown key.Binding

	// Wizard list navigation
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	// Step actions
	Confirm      key.Binding
	Duplicate    key.Binding
	NotDuplicate key.Binding
	Apply        key.Binding
	NewPledge    key.Binding
	Skip         key.Binding
	Back         key.Binding

	// Panels
	ManualSearch key.Binding
	ClosePanel   key.Binding

	// Application
	CycleFilter key.Binding
	Refresh     key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		QueueUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous import"),
		),
		QueueDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next import"),
		),
		Up: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "select"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "confirm household"),
		),
		Duplicate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "mark duplicate"),
		),
		NotDuplicate: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "not a duplicate"),
		),
		Apply: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "apply to pledge"),
		),
		NewPledge: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "new pledge"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Back: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "back"),
		),
		ManualSearch: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "manual search"),
		),
		ClosePanel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close panel"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
	}
}

// ShortHelp returns key bindings for the help line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.QueueDown, k.Select, k.Skip, k.Quit}
}

// FullHelp returns all key bindings grouped by concern.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.QueueUp, k.QueueDown, k.Up, k.Down, k.Select},
		{k.Confirm, k.Duplicate, k.NotDuplicate, k.Apply, k.NewPledge},
		{k.Skip, k.Back, k.ManualSearch, k.CycleFilter},
		{k.Refresh, k.Quit},
	}
}
