package view

import (
	"context"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/money"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats an amount stored as centavos.
func FormatAmount(cents int64) string {
	return money.Format(cents)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

var statusColors = map[lifecycle.Status]lipgloss.Color{
	lifecycle.StatusInPaymentCycle: lipgloss.Color("46"),
	lifecycle.StatusAtRisk:         lipgloss.Color("220"),
	lifecycle.StatusOverdue:        lipgloss.Color("208"),
	lifecycle.StatusCritical:       lipgloss.Color("196"),
	lifecycle.StatusFullyPaid:      lipgloss.Color("39"),
}

// StatusStyle renders a status in its aging colour.
func StatusStyle(s lifecycle.Status) string {
	c, ok := statusColors[s]
	if !ok {
		return string(s)
	}

	return lipgloss.NewStyle().Foreground(c).Render(string(s))
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}
