package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/receivables/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/receivables/internal/backend"
	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	"github.com/MrJamesThe3rd/receivables/internal/config"
	"github.com/MrJamesThe3rd/receivables/internal/logging"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type model struct {
	unitService     *unit.Service
	bulkService     *bulk.Service
	reminderService *reminder.Service

	appName     string
	currentView View

	listView        view.ListModel
	collectionsView view.CollectionsModel
	reportView      view.ReportModel
	importView      view.ImportModel
}

type View int

const (
	ViewMenu        View = 0
	ViewList        View = 1
	ViewCollections View = 2
	ViewReport      View = 3
	ViewImport      View = 4
)

func initialModel(cfg *config.Config, store *backend.Backend) (model, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return model{}, err
	}

	clock, err := cfg.Clock()
	if err != nil {
		return model{}, err
	}

	// The log publisher writes to a file, never to the terminal.
	logFile, err := os.OpenFile("reminders.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return model{}, err
	}

	unitSvc := unit.NewService(store.Units, unit.WithPolicy(policy), unit.WithClock(clock))
	bulkSvc := bulk.NewService(unitSvc)
	reminderSvc := reminder.NewService(unitSvc,
		reminder.NewLogPublisher(logging.New(logFile, "json", cfg.App.LogLevel)), store.History)

	return model{
		unitService:     unitSvc,
		bulkService:     bulkSvc,
		reminderService: reminderSvc,
		appName:         cfg.App.Name,
		currentView:     ViewMenu,
		listView:        view.NewListModel(unitSvc),
		collectionsView: view.NewCollectionsModel(unitSvc, reminderSvc),
		reportView:      view.NewReportModel(unitSvc),
		importView:      view.NewImportModel(bulkSvc),
	}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.unitService)

				return m, m.listView.Init()
			case "2":
				m.currentView = ViewCollections
				m.collectionsView = view.NewCollectionsModel(m.unitService, m.reminderService)

				return m, m.collectionsView.Init()
			case "3":
				m.currentView = ViewReport
				m.reportView = view.NewReportModel(m.unitService)

				return m, m.reportView.Init()
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.bulkService)

				return m, m.importView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewCollections:
		var newModel tea.Model
		newModel, cmd = m.collectionsView.Update(msg)
		m.collectionsView = newModel.(view.CollectionsModel)
	case ViewReport:
		var newModel tea.Model
		newModel, cmd = m.reportView.Update(msg)
		m.reportView = newModel.(view.ReportModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Units\n" +
				"2. Collections Queue\n" +
				"3. Portfolio Report\n" +
				"4. Import Units\n\n" +
				"q. Quit",
		)
	case ViewList:
		return m.listView.View()
	case ViewCollections:
		return m.collectionsView.View()
	case ViewReport:
		return m.reportView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := backend.Open(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	m, err := initialModel(cfg, store)
	if err != nil {
		slog.Error("failed to start TUI", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		store.Close()
		os.Exit(1)
	}
}
