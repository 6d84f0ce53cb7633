package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the browser's key bindings.
type KeyMap struct {
	Quit        key.Binding
	NextPane    key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	Toggle      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Activate    key.Binding
	Back        key.Binding
	Search      key.Binding
	TreeSearch  key.Binding
	Clear       key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	ViewMode    key.Binding
	SortName    key.Binding
	SortNameZh  key.Binding
	SortStatus  key.Binding
	Copy        key.Binding
	Retry       key.Binding
	Help        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextPane:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
		Expand:      key.NewBinding(key.WithKeys("right", "l")),
		Collapse:    key.NewBinding(key.WithKeys("left", "h")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "expand")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		Activate:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "filter/open")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search species")),
		TreeSearch:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "find taxon")),
		Clear:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		NextPage:    key.NewBinding(key.WithKeys("]", "n"), key.WithHelp("]", "next page")),
		PrevPage:    key.NewBinding(key.WithKeys("[", "p"), key.WithHelp("[", "prev page")),
		ViewMode:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "table/gallery")),
		SortName:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1-3", "sort")),
		SortNameZh:  key.NewBinding(key.WithKeys("2")),
		SortStatus:  key.NewBinding(key.WithKeys("3")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy name")),
		Retry:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.Activate, k.Search, k.TreeSearch, k.Clear, k.ViewMode, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ExpandAll, k.CollapseAll},
		{k.Activate, k.Back, k.Search, k.TreeSearch, k.Clear},
		{k.NextPage, k.PrevPage, k.SortName, k.ViewMode},
		{k.Copy, k.Retry, k.NextPane, k.Help, k.Quit},
	}
}
