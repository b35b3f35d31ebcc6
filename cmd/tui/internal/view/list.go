package view

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type listState int

const (
	listStateBrowse listState = iota
	listStatePayment
	listStateNote
)

type ListModel struct {
	CommonModel
	units *unit.Service

	state listState
	table table.Model
	rows  []unit.Assessed
	form  *huh.Form

	// Filter cycling; index 0 means no filter.
	statusFilterIdx  int
	projectFilterIdx int
	projects         []string

	filter  unit.ListFilter
	loading bool
	err     error
	status  string

	// Form bindings
	formMonths string
	formNote   string
}

func NewListModel(units *unit.Service) ListModel {
	columns := []table.Column{
		{Title: "Block/Lot", Width: 10},
		{Title: "Project", Width: 22},
		{Title: "Buyer", Width: 18},
		{Title: "Status", Width: 18},
		{Title: "Days Late", Width: 9},
		{Title: "Arrears", Width: 14},
		{Title: "Paid", Width: 8},
		{Title: "Next Due", Width: 11},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		units:   units,
		table:   t,
		loading: true,
	}
}

func (m ListModel) Title() string { return "Units" }
func (m ListModel) ShortHelp() string {
	if m.state != listStateBrowse {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | p: record payment | n: add note | s: status filter | j: project filter | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadUnitsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rows = msg.units
		if m.projects == nil {
			m.projects = projectsOf(msg.units)
		}
		m.refreshTable()
		return m, nil

	case listSaveMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		}
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()
		return m, m.loadUnitsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == listStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadUnitsCmd()
		case "p":
			return m.enterPaymentMode()
		case "n":
			return m.enterNoteMode()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % (len(lifecycle.Statuses) + 1)
			m.applyFilter()
			return m, m.loadUnitsCmd()
		case "j":
			m.projectFilterIdx = (m.projectFilterIdx + 1) % (len(m.projects) + 1)
			m.applyFilter()
			return m, m.loadUnitsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) selected() (unit.Assessed, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return unit.Assessed{}, false
	}

	return m.rows[idx], true
}

func (m ListModel) enterPaymentMode() (tea.Model, tea.Cmd) {
	u, ok := m.selected()
	if !ok {
		return m, nil
	}

	if u.PaymentTerms == nil {
		m.status = fmt.Sprintf("%s has no payment plan", u.BlockLot)
		return m, nil
	}

	m.formMonths = "1"
	if u.Assessment.MonthsMissed > 0 {
		m.formMonths = strconv.Itoa(u.Assessment.MonthsMissed)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("months").
				Title("Installments paid").
				Value(&m.formMonths).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of months")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStatePayment
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) enterNoteMode() (tea.Model, tea.Cmd) {
	if _, ok := m.selected(); !ok {
		return m, nil
	}

	m.formNote = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("note").
				Title("Note").
				Value(&m.formNote).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("note cannot be empty")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateNote
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == listStatePayment {
		return m, m.paymentCmd()
	}

	return m, m.noteCmd()
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading units...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabel := "All"
	if m.statusFilterIdx > 0 {
		statusLabel = string(lifecycle.Statuses[m.statusFilterIdx-1])
	}

	projectLabel := "All"
	if m.projectFilterIdx > 0 {
		projectLabel = m.projects[m.projectFilterIdx-1]
	}

	header := fmt.Sprintf(
		"Filter: [s] Status: %s | [j] Project: %s | %d units",
		activeStyle(statusLabel),
		activeStyle(projectLabel),
		len(m.rows),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state != listStateBrowse && m.form != nil {
		u, _ := m.selected()

		title := "Record Payment"
		if m.state == listStateNote {
			title = "Add Note"
		}

		detail := fmt.Sprintf("%s · %s", u.BlockLot, StatusStyle(u.Status()))
		if u.PaymentTerms != nil {
			detail += fmt.Sprintf("\nMonthly: %s\nArrears: %s",
				FormatAmount(u.PaymentTerms.MonthlyAmount), FormatAmount(u.Assessment.Arrears))
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("%s\n\n%s\n\n%s", title, detail, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ListModel) applyFilter() {
	m.filter.Status = nil
	if m.statusFilterIdx > 0 {
		m.filter.Status = new(lifecycle.Statuses[m.statusFilterIdx-1])
	}

	m.filter.Project = nil
	if m.projectFilterIdx > 0 {
		m.filter.Project = new(m.projects[m.projectFilterIdx-1])
	}
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))
	for _, u := range m.rows {
		buyer, nextDue, paid := "", "", ""
		if u.Buyer != nil {
			buyer = u.Buyer.Name
		}
		if u.PaymentTerms != nil {
			nextDue = FormatDate(u.PaymentTerms.NextDueDate)
			paid = u.Assessment.PercentPaid.StringFixed(1) + "%"
		}
		rows = append(rows, table.Row{
			u.BlockLot,
			u.Project,
			buyer,
			string(u.Status()),
			strconv.Itoa(u.Assessment.DaysLate),
			FormatAmount(u.Assessment.Arrears),
			paid,
			nextDue,
		})
	}
	m.table.SetRows(rows)
}

func projectsOf(units []unit.Assessed) []string {
	var out []string
	for _, u := range units {
		if !slices.Contains(out, u.Project) {
			out = append(out, u.Project)
		}
	}
	slices.Sort(out)
	return out
}

// Messages

type loadListMsg struct {
	units []unit.Assessed
	err   error
}

func (m ListModel) loadUnitsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		units, err := m.units.List(ctx, filter)
		return loadListMsg{units: units, err: err}
	}
}

type listSaveMsg struct {
	status string
	err    error
}

func (m ListModel) paymentCmd() tea.Cmd {
	u, ok := m.selected()
	if !ok {
		return nil
	}

	months, _ := strconv.Atoi(strings.TrimSpace(m.formMonths))

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.units.RecordPayment(ctx, u.ID, months)
		if err != nil {
			return listSaveMsg{err: err}
		}

		return listSaveMsg{status: fmt.Sprintf("%s is now %s", updated.BlockLot, m.units.Assess(updated).Status())}
	}
}

func (m ListModel) noteCmd() tea.Cmd {
	u, ok := m.selected()
	if !ok {
		return nil
	}

	note := m.formNote

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.units.AddNote(ctx, u.ID, note); err != nil {
			return listSaveMsg{err: err}
		}

		return listSaveMsg{status: fmt.Sprintf("Note added to %s", u.BlockLot)}
	}
}
