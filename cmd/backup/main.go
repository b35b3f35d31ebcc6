package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/receivables/internal/backup"
	"github.com/MrJamesThe3rd/receivables/internal/config"
	"github.com/MrJamesThe3rd/receivables/internal/database"
	"github.com/MrJamesThe3rd/receivables/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.App.LogFormat, cfg.App.LogLevel)

	if cfg.DB.SupabaseURL == "" && cfg.DB.URL == "" {
		slog.Error("SUPABASE_DB_URL or DATABASE_URL must be set")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := backup.NewDumper(backup.NewDBSource(db), cfg.Backup.Dir).Run(context.Background(), cfg.Backup.Tables)
	if err != nil {
		slog.Error("backup failed", "error", err, "written", len(files))
		db.Close()
		os.Exit(1)
	}

	slog.Info("backup complete", "files", len(files), "dir", cfg.Backup.Dir)
}
