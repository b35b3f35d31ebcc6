package seed

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
)

// Chunk sizes per table weight: small reference tables, people, units, and
// high-volume ledgers.
const (
	chunkTiny   = 20
	chunkSmall  = 50
	chunkMedium = 100
	chunkLarge  = 200
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Table is a batch of rows for one table, inserted ChunkSize rows per statement.
type Table struct {
	Name      string
	Columns   []string
	ChunkSize int
	Rows      [][]any
}

func (t *Table) add(values ...any) {
	t.Rows = append(t.Rows, values)
}

// TableCount reports how many rows a table was given and how many were new.
type TableCount struct {
	Table    string
	Rows     int
	Inserted int64
}

// Load inserts the tables in order, one chunk at a time. Existing ids are
// skipped, so loading the same dataset twice inserts nothing the second time.
// The first failing statement aborts the load.
func Load(ctx context.Context, db execer, tables []Table) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(tables))

	for _, t := range tables {
		c := TableCount{Table: t.Name, Rows: len(t.Rows)}

		for chunk := range chunks(t.Rows, t.ChunkSize) {
			res, err := db.ExecContext(ctx, insertQuery(t.Name, t.Columns, len(chunk)), flatten(chunk)...)
			if err != nil {
				return counts, fmt.Errorf("inserting into %s: %w", t.Name, err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return counts, fmt.Errorf("reading affected rows for %s: %w", t.Name, err)
			}

			c.Inserted += n
		}

		counts = append(counts, c)
	}

	return counts, nil
}

func chunks(rows [][]any, size int) iter.Seq[[][]any] {
	if size <= 0 {
		size = chunkMedium
	}

	return func(yield func([][]any) bool) {
		for start := 0; start < len(rows); start += size {
			if !yield(rows[start:min(start+size, len(rows))]) {
				return
			}
		}
	}
}

func insertQuery(table string, columns []string, n int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	arg := 1

	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteByte('(')

		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}

			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}

		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	return b.String()
}

func flatten(rows [][]any) []any {
	if len(rows) == 0 {
		return nil
	}

	out := make([]any, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}

	return out
}
