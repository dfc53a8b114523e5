package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	District      key.Binding
	School        key.Binding
	Grade         key.Binding
	Apply         key.Binding
	Refresh       key.Binding
	Reset         key.Binding
	Download      key.Binding
	ReportType    key.Binding
	Brief         key.Binding
	ToggleFilters key.Binding
	Notifications key.Binding
	ClearErrors   key.Binding
	DismissReport key.Binding
	NextPane      key.Binding
	Sort          key.Binding
	Reverse       key.Binding
	Search        key.Binding
	Up            key.Binding
	Down          key.Binding
	PrevPage      key.Binding
	NextPage      key.Binding
	Select        key.Binding
	Back          key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		District:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "district")),
		School:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "school")),
		Grade:         key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grade")),
		Apply:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply filters")),
		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Reset:         key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset filters")),
		Download:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "download report")),
		ReportType:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "report type")),
		Brief:         key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "AI briefing")),
		ToggleFilters: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle filters")),
		Notifications: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "toggle alerts")),
		ClearErrors:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear errors")),
		DismissReport: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "dismiss download error")),
		NextPane:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
		Sort:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Reverse:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "reverse")),
		Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search schools")),
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage:      key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev page")),
		NextPage:      key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l", "next page")),
		Select:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.District, k.School, k.Grade, k.Apply, k.NextPane, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.District, k.School, k.Grade, k.Apply, k.Refresh, k.Reset},
		{k.NextPane, k.Up, k.Down, k.PrevPage, k.NextPage, k.Select},
		{k.Sort, k.Reverse, k.Search, k.ToggleFilters, k.Notifications},
		{k.Download, k.ReportType, k.Brief, k.ClearErrors, k.DismissReport, k.Quit},
	}
}
