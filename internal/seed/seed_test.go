package seed_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/seed"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
	"github.com/MrJamesThe3rd/receivables/internal/unit/memstore"
)

var refDate = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func testParams() seed.Params {
	return seed.Params{
		OrgName:       "Sunrise Estates",
		OrgSlug:       "sunrise-estates",
		AdminEmail:    "admin@sunrise.test",
		AdminPassword: "demo1234",
		Units:         60,
		Seed:          42,
		HashCost:      bcrypt.MinCost,
		Now:           refDate,
	}
}

func TestBuild_IntendedStatusRoundTrip(t *testing.T) {
	ds, err := seed.Build(testParams())
	require.NoError(t, err)
	require.Len(t, ds.Units, 60)

	seeded := make([]*unit.Unit, len(ds.Units))
	intended := make(map[uuid.UUID]lifecycle.Status, len(ds.Units))

	for i, s := range ds.Units {
		seeded[i] = s.Unit
		intended[s.Unit.ID] = s.Intended
	}

	svc := unit.NewService(memstore.New(seeded...), unit.WithClock(func() time.Time { return refDate }))

	assessed, err := svc.List(context.Background(), unit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, assessed, len(ds.Units))

	for _, a := range assessed {
		assert.Equal(t, intended[a.ID], a.Status(), "unit %s %s", a.Project, a.BlockLot)
	}
}

func TestBuild_CoversEveryStatus(t *testing.T) {
	p := testParams()
	p.Units = 9

	ds, err := seed.Build(p)
	require.NoError(t, err)

	got := make(map[lifecycle.Status]bool)
	for _, s := range ds.Units {
		got[s.Intended] = true
	}

	for _, st := range lifecycle.Statuses {
		assert.True(t, got[st], "missing %s", st)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := seed.Build(testParams())
	require.NoError(t, err)

	b, err := seed.Build(testParams())
	require.NoError(t, err)

	assert.Equal(t, a.OrgID, b.OrgID)
	require.Len(t, b.Units, len(a.Units))

	for i := range a.Units {
		assert.Equal(t, a.Units[i].Unit, b.Units[i].Unit)
	}

	require.Len(t, b.Tables, len(a.Tables))

	for i := range a.Tables {
		assert.Equal(t, a.Tables[i].Name, b.Tables[i].Name)
		assert.Len(t, b.Tables[i].Rows, len(a.Tables[i].Rows), a.Tables[i].Name)
	}

	other := testParams()
	other.OrgSlug = "another-org"

	c, err := seed.Build(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.OrgID, c.OrgID)
	assert.NotEqual(t, a.Units[0].Unit.ID, c.Units[0].Unit.ID)
}

func TestBuild_Tables(t *testing.T) {
	ds, err := seed.Build(testParams())
	require.NoError(t, err)

	names := make([]string, len(ds.Tables))
	byName := make(map[string]seed.Table, len(ds.Tables))

	for i, tbl := range ds.Tables {
		names[i] = tbl.Name
		byName[tbl.Name] = tbl

		for _, row := range tbl.Rows {
			require.Len(t, row, len(tbl.Columns), tbl.Name)
		}
	}

	assert.Equal(t, []string{
		"organizations", "users", "projects", "customers", "financing_programs", "payment_methods",
		"units", "unit_notes", "payment_schedules", "payments", "payment_intents", "milestones",
		"announcements", "reminders", "dispatch_records", "feedback", "defects", "checklist_items",
	}, names)

	for _, name := range names {
		assert.NotEmpty(t, byName[name].Rows, name)
	}

	assert.Len(t, byName["units"].Rows, 60)
	assert.Equal(t, 200, byName["payments"].ChunkSize)
	assert.Equal(t, 20, byName["organizations"].ChunkSize)

	schedules := make(map[any]bool)
	for _, row := range byName["payment_schedules"].Rows {
		schedules[row[0]] = true
	}

	for _, row := range byName["payments"].Rows {
		assert.True(t, schedules[row[2]], "payment references unknown schedule")
	}

	reminders := make(map[any]bool)
	for _, row := range byName["reminders"].Rows {
		reminders[row[0]] = true
	}

	for _, row := range byName["dispatch_records"].Rows {
		assert.True(t, reminders[row[1]], "dispatch references unknown reminder")
	}

	roles := make(map[auth.Role]int)
	for _, c := range ds.Credentials {
		roles[c.Role]++
	}

	assert.Equal(t, 1, roles[auth.RoleAdmin])
	assert.Equal(t, 1, roles[auth.RoleCustomer])
	assert.Equal(t, "admin@sunrise.test", ds.Credentials[0].Email)
}

func TestBuild_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *seed.Params)
	}{
		{name: "BadEmail", modify: func(p *seed.Params) { p.AdminEmail = "admin" }},
		{name: "ShortPassword", modify: func(p *seed.Params) { p.AdminPassword = "short" }},
		{name: "TooFewUnits", modify: func(p *seed.Params) { p.Units = 3 }},
		{name: "UppercaseSlug", modify: func(p *seed.Params) { p.OrgSlug = "Sunrise" }},
		{name: "NoReferenceDate", modify: func(p *seed.Params) { p.Now = time.Time{} }},
		{name: "BadPolicy", modify: func(p *seed.Params) {
			p.Policy = lifecycle.Policy{CycleDays: 30, AtRiskDays: 90, OverdueDays: 60, CriticalDays: 120}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)

			_, err := seed.Build(p)
			assert.Error(t, err)
		})
	}
}

type result int64

func (r result) LastInsertId() (int64, error) { return 0, nil }
func (r result) RowsAffected() (int64, error) { return int64(r), nil }

type fakeDB struct {
	queries []string
	argLens []int
	failAt  int
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.argLens = append(f.argLens, len(args))

	if f.failAt > 0 && len(f.queries) == f.failAt {
		return nil, errors.New("duplicate key")
	}

	return result(len(args) / 2), nil
}

func rows(n int) [][]any {
	out := make([][]any, n)
	for i := range out {
		out[i] = []any{uuid.New(), i}
	}

	return out
}

func TestLoad_Chunks(t *testing.T) {
	db := &fakeDB{}

	counts, err := seed.Load(context.Background(), db, []seed.Table{
		{Name: "payments", Columns: []string{"id", "amount"}, ChunkSize: 200, Rows: rows(450)},
		{Name: "projects", Columns: []string{"id", "name"}, ChunkSize: 20, Rows: rows(3)},
		{Name: "defects", Columns: []string{"id", "label"}, ChunkSize: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{400, 400, 100, 6}, db.argLens)
	assert.Equal(t, []seed.TableCount{
		{Table: "payments", Rows: 450, Inserted: 450},
		{Table: "projects", Rows: 3, Inserted: 3},
		{Table: "defects", Rows: 0, Inserted: 0},
	}, counts)

	assert.Equal(t,
		"INSERT INTO projects (id, name) VALUES ($1, $2), ($3, $4), ($5, $6) ON CONFLICT (id) DO NOTHING",
		db.queries[3])
}

func TestLoad_AbortsOnError(t *testing.T) {
	db := &fakeDB{failAt: 2}

	counts, err := seed.Load(context.Background(), db, []seed.Table{
		{Name: "organizations", Columns: []string{"id", "name"}, ChunkSize: 20, Rows: rows(1)},
		{Name: "users", Columns: []string{"id", "email"}, ChunkSize: 20, Rows: rows(2)},
		{Name: "projects", Columns: []string{"id", "name"}, ChunkSize: 20, Rows: rows(2)},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting into users")
	assert.Len(t, db.queries, 2)
	assert.Len(t, counts, 1)
}

func TestRun_Print(t *testing.T) {
	p := testParams()
	p.Units = 12

	res, err := seed.Run(context.Background(), &fakeDB{}, p)
	require.NoError(t, err)
	require.Len(t, res.Counts, 18)

	var buf bytes.Buffer
	res.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "sunrise-estates")
	assert.Contains(t, out, "admin@sunrise.test")
	assert.Contains(t, out, "demo1234")
	assert.Contains(t, out, "payment_schedules")
}
