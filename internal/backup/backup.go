// Package backup dumps tables to timestamped JSON files.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TimestampFormat is the file name suffix layout.
const TimestampFormat = "20060102-150405"

// DefaultTables are dumped when no table list is configured.
var DefaultTables = []string{
	"organizations", "users", "projects", "customers", "financing_programs", "payment_methods",
	"units", "unit_notes", "payment_schedules", "payments", "payment_intents", "milestones",
	"announcements", "reminders", "dispatch_records", "feedback", "defects", "checklist_items",
}

// Rows is the subset of *sql.Rows a dump reads.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type Source interface {
	QueryTable(ctx context.Context, table string) (Rows, error)
}

// DBSource reads whole tables ordered by id.
type DBSource struct {
	db *sql.DB
}

func NewDBSource(db *sql.DB) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) QueryTable(ctx context.Context, table string) (Rows, error) {
	query := "SELECT * FROM " + pgx.Identifier{table}.Sanitize() + " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}

	return rows, nil
}

// File describes one written dump.
type File struct {
	Table string
	Path  string
	Rows  int
}

type Dumper struct {
	src Source
	dir string
	now func() time.Time
}

func NewDumper(src Source, dir string) *Dumper {
	return &Dumper{src: src, dir: dir, now: time.Now}
}

// Run dumps each table to <dir>/<table>_<timestamp>.json. Every file of one run
// shares the same timestamp. The first failure stops the run; files already
// written are kept.
func (d *Dumper) Run(ctx context.Context, tables []string) ([]File, error) {
	if len(tables) == 0 {
		tables = DefaultTables
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	stamp := d.now().UTC().Format(TimestampFormat)
	files := make([]File, 0, len(tables))

	for _, table := range tables {
		records, err := d.readTable(ctx, table)
		if err != nil {
			return files, err
		}

		path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.json", table, stamp))
		if err := writeJSON(path, records); err != nil {
			return files, fmt.Errorf("writing %s: %w", path, err)
		}

		slog.Info("table backed up", "table", table, "rows", len(records), "path", path)
		files = append(files, File{Table: table, Path: path, Rows: len(records)})
	}

	return files, nil
}

func (d *Dumper) readTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := d.src.QueryTable(ctx, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	records := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}

		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = jsonValue(values[i])
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table, err)
	}

	return records, nil
}

// jsonValue turns driver values into JSON friendly ones.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
