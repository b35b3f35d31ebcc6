// Package backend opens the repositories selected by configuration: Postgres,
// or an in-memory store preloaded with the seed dataset.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	authStore "github.com/MrJamesThe3rd/receivables/internal/auth/memstore"
	authPG "github.com/MrJamesThe3rd/receivables/internal/auth/store"
	"github.com/MrJamesThe3rd/receivables/internal/config"
	"github.com/MrJamesThe3rd/receivables/internal/database"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	reminderPG "github.com/MrJamesThe3rd/receivables/internal/reminder/store"
	"github.com/MrJamesThe3rd/receivables/internal/seed"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
	"github.com/MrJamesThe3rd/receivables/internal/unit/memstore"
	unitPG "github.com/MrJamesThe3rd/receivables/internal/unit/store"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Backend struct {
	Units   unit.Repository
	Users   auth.Repository
	History reminder.History

	db *sql.DB
}

// Open connects the configured store. History is nil for the memory store.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.App.Store {
	case StoreMemory:
		return openMemory(cfg)
	case StorePostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.App.Store)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Backend, error) {
	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Backend{
		Units:   unitPG.New(db),
		Users:   authPG.New(db),
		History: reminderPG.New(db),
		db:      db,
	}, nil
}

func openMemory(cfg *config.Config) (*Backend, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	ds, err := seed.Build(seed.Params{
		OrgName:       cfg.Seed.OrgName,
		OrgSlug:       cfg.Seed.OrgSlug,
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
		Units:         cfg.Seed.Units,
		Seed:          cfg.Seed.Seed,
		Now:           clock(),
		Policy:        policy,
	})
	if err != nil {
		return nil, fmt.Errorf("building demo dataset: %w", err)
	}

	units := make([]*unit.Unit, len(ds.Units))
	for i, s := range ds.Units {
		units[i] = s.Unit
	}

	slog.Info("using in-memory store", "org", ds.OrgSlug, "units", len(units), "users", len(ds.Users))

	return &Backend{
		Units: memstore.New(units...),
		Users: authStore.New(ds.Users...),
	}, nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}

	return b.db.Close()
}
