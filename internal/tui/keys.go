package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	Open   key.Binding
	Clear  key.Binding

	SortConfidence   key.Binding
	SortLastModified key.Binding
	Search           key.Binding
	ResetFilters     key.Binding

	Approve key.Binding
	Reject  key.Binding
	Link    key.Binding
	Unlink  key.Binding
	Confirm key.Binding
	Escape  key.Binding

	Dismiss key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		All: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "all"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		SortConfidence: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort conf"),
		),
		SortLastModified: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "sort modified"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ResetFilters: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reset"),
		),
		Approve: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reject"),
		),
		Link: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "link"),
		),
		Unlink: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "unlink"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shortHelp lists the bindings shown in the footer.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Toggle, k.All, k.Open, k.SortConfidence, k.SortLastModified,
		k.Search, k.ResetFilters, k.Approve, k.Reject, k.Link, k.Unlink, k.Clear,
		k.Dismiss, k.Quit,
	}
}
