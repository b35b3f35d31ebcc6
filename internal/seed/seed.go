package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Result is what the seed job reports on success.
type Result struct {
	OrgSlug     string
	Credentials []Credential
	Counts      []TableCount
}

// Run builds the dataset for p and loads it table by table.
func Run(ctx context.Context, db execer, p Params) (*Result, error) {
	ds, err := Build(p)
	if err != nil {
		return nil, err
	}

	slog.Info("seeding organization", "slug", ds.OrgSlug, "units", len(ds.Units), "tables", len(ds.Tables))

	counts, err := Load(ctx, db, ds.Tables)
	if err != nil {
		return nil, err
	}

	return &Result{
		OrgSlug:     ds.OrgSlug,
		Credentials: ds.Credentials,
		Counts:      counts,
	}, nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// Print writes the org slug, the logins and the per-table counts.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "Organization: %s\n\n", r.OrgSlug)

	logins := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ROLE", "EMAIL", "PASSWORD").
		StyleFunc(cellStyle)

	for _, c := range r.Credentials {
		logins.Row(string(c.Role), c.Email, c.Password)
	}

	fmt.Fprintln(w, logins.Render())

	counts := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TABLE", "ROWS", "INSERTED").
		StyleFunc(cellStyle)

	for _, c := range r.Counts {
		counts.Row(c.Table, strconv.Itoa(c.Rows), strconv.FormatInt(c.Inserted, 10))
	}

	fmt.Fprintln(w, counts.Render())
}

func cellStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}

	return lipgloss.NewStyle().Padding(0, 1)
}
