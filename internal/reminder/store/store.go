package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/reminder"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveDispatch stores the reminders and their records in one transaction.
func (s *Store) SaveDispatch(ctx context.Context, reminders []reminder.Reminder, records []reminder.Record) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, r := range reminders {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO reminders (id, unit_id, channel, recipient, subject, body, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, r.ID, r.UnitID, string(r.Channel), r.Recipient, r.Subject, r.Body, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting reminder %s: %w", r.ID, err)
		}
	}

	for _, rec := range records {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO dispatch_records (id, reminder_id, status, error, sent_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), rec.ReminderID, string(rec.Status), rec.Error, rec.SentAt)
		if err != nil {
			return fmt.Errorf("inserting dispatch record %s: %w", rec.ReminderID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
