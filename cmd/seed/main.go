package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/receivables/internal/config"
	"github.com/MrJamesThe3rd/receivables/internal/database"
	"github.com/MrJamesThe3rd/receivables/internal/logging"
	"github.com/MrJamesThe3rd/receivables/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.App.LogFormat, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	clock, err := cfg.Clock()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	res, err := seed.Run(ctx, db, seed.Params{
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
		return err
	}

	res.Print(os.Stdout)

	return nil
}
