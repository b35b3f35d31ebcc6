// Package view holds the screens of the receivables dashboard: the unit
// table, the collections queue, the portfolio report and the CSV import.
package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// View is a dashboard screen reachable from the main menu.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct{}

// BackMsg returns the dashboard to the main menu.
type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}
