package view

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/report"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

// ReportModel shows the portfolio summary at the service reference date.
type ReportModel struct {
	CommonModel
	units *unit.Service

	summary *report.Summary
	loading bool
	err     error
}

func NewReportModel(units *unit.Service) ReportModel {
	return ReportModel{units: units, loading: true}
}

func (m ReportModel) Title() string     { return "Portfolio Report" }
func (m ReportModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m ReportModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportMsg:
		m.loading = false
		m.err = msg.err
		m.summary = msg.summary

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

var headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func cell(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerCell
	}

	return lipgloss.NewStyle().Padding(0, 1)
}

func (m ReportModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Computing report...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	s := m.summary

	var b strings.Builder

	fmt.Fprintf(&b, "As of %s\n\n", FormatDate(m.units.Now()))
	fmt.Fprintf(&b, "Units: %d (%d sold, %d unsold)\n", s.TotalUnits, s.Sold, s.Unsold)
	fmt.Fprintf(&b, "Contract value: %s\n", FormatAmount(s.ContractValue))
	fmt.Fprintf(&b, "Collected: %s of %s due to date\n", FormatAmount(s.Collected), FormatAmount(s.DueToDate))
	fmt.Fprintf(&b, "Arrears: %s | Outstanding: %s\n", FormatAmount(s.TotalArrears), FormatAmount(s.Outstanding))
	fmt.Fprintf(&b, "Collection rate: %s\n\n", activeStyle(s.CollectionRate.StringFixed(2)+"%"))

	statuses := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STATUS", "UNITS").
		StyleFunc(cell)
	for _, st := range lifecycle.Statuses {
		statuses.Row(StatusStyle(st), strconv.Itoa(s.ByStatus[st]))
	}

	aging := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DAYS LATE", "UNITS", "ARREARS", "BALANCE").
		StyleFunc(cell)
	for _, bk := range s.Aging {
		aging.Row(bk.Label, strconv.Itoa(bk.Units), FormatAmount(bk.Arrears), FormatAmount(bk.Balance))
	}

	projects := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PROJECT", "UNITS", "SOLD", "AGING", "ARREARS", "COLLECTED").
		StyleFunc(cell)
	for _, p := range s.Projects {
		projects.Row(p.Project, strconv.Itoa(p.Units), strconv.Itoa(p.Sold), strconv.Itoa(p.Aging),
			FormatAmount(p.Arrears), FormatAmount(p.Collected))
	}

	tables := lipgloss.JoinHorizontal(lipgloss.Top, statuses.Render(), "  ", aging.Render())

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left, b.String(), tables, projects.Render()),
	)
}

type reportMsg struct {
	summary *report.Summary
	err     error
}

func (m ReportModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		units, err := m.units.List(ctx, unit.ListFilter{})
		if err != nil {
			return reportMsg{err: err}
		}

		s := report.Summarize(units, m.units.Policy())

		return reportMsg{summary: &s}
	}
}
