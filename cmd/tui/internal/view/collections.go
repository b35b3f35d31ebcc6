package view

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

// CollectionsModel is the queue of aging accounts, most days late first.
type CollectionsModel struct {
	CommonModel
	units     *unit.Service
	reminders *reminder.Service

	queue   list.Model
	confirm *huh.Form
	sendOK  bool

	loading bool
	status  string
	err     error
}

func NewCollectionsModel(units *unit.Service, reminders *reminder.Service) CollectionsModel {
	q := list.New(nil, queueDelegate{}, 100, 20)
	q.Title = "Collections Queue"
	q.SetShowStatusBar(false)
	q.SetFilteringEnabled(false)
	q.SetShowHelp(false)

	return CollectionsModel{
		units:     units,
		reminders: reminders,
		queue:     q,
		loading:   true,
	}
}

func (m CollectionsModel) Title() string { return "Collections" }

func (m CollectionsModel) ShortHelp() string {
	return "Esc: back | d: dispatch reminders | r: refresh"
}

func (m CollectionsModel) Init() tea.Cmd {
	return m.loadQueueCmd()
}

func (m CollectionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadQueueMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		items := make([]list.Item, len(msg.units))
		for i, u := range msg.units {
			items[i] = queueItem{u: u}
		}

		return m, m.queue.SetItems(items)

	case dispatchResultMsg:
		m.confirm = nil
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Dispatched %d reminders, %d failed.", msg.sent, msg.failed)

		return m, nil

	case tea.WindowSizeMsg:
		m.queue.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	}

	if m.confirm != nil {
		return m.updateConfirm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadQueueCmd()
		case "d":
			m.sendOK = false
			m.confirm = huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Send reminders to %d aging accounts?", len(m.queue.Items()))).
					Value(&m.sendOK),
			)).WithShowHelp(false)

			return m, m.confirm.Init()
		}
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)

	return m, cmd
}

func (m CollectionsModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.confirm = nil
		return m, nil
	}

	form, cmd := m.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.confirm = f
	}

	if m.confirm.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.sendOK {
		m.confirm = nil
		return m, nil
	}

	m.status = "Dispatching reminders..."

	return m, m.dispatchCmd()
}

func (m CollectionsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading collections queue...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	var total int64
	for _, it := range m.queue.Items() {
		total += it.(queueItem).u.Assessment.Arrears
	}

	header := fmt.Sprintf("%d aging accounts | arrears %s", len(m.queue.Items()), activeStyle(FormatAmount(total)))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		m.queue.View(),
	)

	if m.confirm != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Render(m.confirm.View()),
		)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// Messages

type loadQueueMsg struct {
	units []unit.Assessed
	err   error
}

// AgingQueue keeps the aging units and orders them by days late, then arrears.
func AgingQueue(units []unit.Assessed) []unit.Assessed {
	out := make([]unit.Assessed, 0, len(units))
	for _, u := range units {
		if u.Status().IsAging() {
			out = append(out, u)
		}
	}

	slices.SortStableFunc(out, func(a, b unit.Assessed) int {
		return cmp.Or(
			cmp.Compare(b.Assessment.DaysLate, a.Assessment.DaysLate),
			cmp.Compare(b.Assessment.Arrears, a.Assessment.Arrears),
		)
	})

	return out
}

func (m CollectionsModel) loadQueueCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		units, err := m.units.List(ctx, unit.ListFilter{})
		if err != nil {
			return loadQueueMsg{err: err}
		}

		return loadQueueMsg{units: AgingQueue(units)}
	}
}

type dispatchResultMsg struct {
	sent, failed int
	err          error
}

func (m CollectionsModel) dispatchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, records, err := m.reminders.Send(ctx, unit.ListFilter{})
		if err != nil {
			return dispatchResultMsg{err: err}
		}

		var res dispatchResultMsg
		for _, r := range records {
			if r.Status == reminder.DispatchSent {
				res.sent++
			} else {
				res.failed++
			}
		}

		return res
	}
}

// Queue list item

type queueItem struct {
	u unit.Assessed
}

func (i queueItem) Title() string       { return i.u.BlockLot }
func (i queueItem) Description() string { return i.u.Project }
func (i queueItem) FilterValue() string { return i.u.BlockLot }

type queueDelegate struct{}

func (d queueDelegate) Height() int                             { return 2 }
func (d queueDelegate) Spacing() int                            { return 0 }
func (d queueDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d queueDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(queueItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	u := item.u

	buyer, contact := "", ""
	if u.Buyer != nil {
		buyer = u.Buyer.Name
		contact = cmp.Or(u.Buyer.Email, u.Buyer.Contact)
	}

	line1 := fmt.Sprintf("%s%-10s %-20s %s  %d days late",
		cursor, u.BlockLot, buyer, StatusStyle(u.Status()), u.Assessment.DaysLate)

	line2 := fmt.Sprintf("    %s · %d missed · arrears %s · %s",
		u.Project, u.Assessment.MonthsMissed, FormatAmount(u.Assessment.Arrears),
		strings.TrimSpace(contact))

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
