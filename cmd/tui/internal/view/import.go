package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/receivables/internal/bulk"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

// ImportModel loads a unit inventory CSV through the bulk importer.
type ImportModel struct {
	CommonModel
	bulk *bulk.Service

	state      importState
	filePicker filepicker.Model
	rejected   list.Model

	status string
	err    error
}

func NewImportModel(bulkSvc *bulk.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		bulk:       bulkSvc,
		filePicker: fp,
	}
}

func (m ImportModel) Title() string { return "Import Units" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateResult {
			var cmd tea.Cmd
			m.rejected, cmd = m.rejected.Update(msg)

			return m, cmd
		}

	case importResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		parsed := msg.result.Parsed
		m.status = fmt.Sprintf("Imported %d units (%s profile, %s, %q delimited). %d rows rejected.",
			len(msg.result.Created), parsed.Profile, parsed.Charset, parsed.Delimiter, len(parsed.Errors))

		items := make([]list.Item, len(parsed.Errors))
		for i, re := range parsed.Errors {
			items[i] = rowErrorItem{err: re}
		}

		m.rejected = list.New(items, rowErrorDelegate{}, 80, 15)
		m.rejected.Title = "Rejected Rows"
		m.rejected.SetShowStatusBar(false)
		m.rejected.SetFilteringEnabled(false)
		m.rejected.SetShowHelp(false)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	if m.state == importStateResult {
		m.state = importStateFilePick
		m.err = nil
		m.status = ""

		return m, m.filePicker.Init()
	}

	return m, Back
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select a unit inventory export:\n\n%s", m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	out := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status)
	if len(m.rejected.Items()) > 0 {
		out += "\n\n" + m.rejected.View()
	}

	return style.Render(out + "\n\n(Esc to go back)")
}

// Messages

type importResultMsg struct {
	result *bulk.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.bulk.Import(ctx, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}

// Rejected row list item

type rowErrorItem struct {
	err bulk.RowError
}

func (i rowErrorItem) Title() string       { return fmt.Sprintf("Row %d", i.err.Row) }
func (i rowErrorItem) Description() string { return i.err.Err.Error() }
func (i rowErrorItem) FilterValue() string { return "" }

type rowErrorDelegate struct{}

func (d rowErrorDelegate) Height() int                             { return 1 }
func (d rowErrorDelegate) Spacing() int                            { return 0 }
func (d rowErrorDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowErrorDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(rowErrorItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%s%-8s %s", cursor, item.Title(), item.Description())
}
