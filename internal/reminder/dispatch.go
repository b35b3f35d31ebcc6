package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=dispatch.go -destination=publisher_mock.go -package=reminder
type Publisher interface {
	Publish(ctx context.Context, r Reminder) error
}

type DispatchStatus string

const (
	DispatchSent   DispatchStatus = "sent"
	DispatchFailed DispatchStatus = "failed"
)

// Record is the outcome of dispatching one reminder.
type Record struct {
	ReminderID uuid.UUID      `json:"reminder_id"`
	UnitID     uuid.UUID      `json:"unit_id"`
	Status     DispatchStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	SentAt     time.Time      `json:"sent_at"`
}

type Dispatcher struct {
	pub Publisher
	now func() time.Time
}

func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub, now: time.Now}
}

// Dispatch publishes every reminder and records each outcome. A failed publish
// does not stop the batch. It returns early only when ctx is done.
func (d *Dispatcher) Dispatch(ctx context.Context, reminders []Reminder) ([]Record, error) {
	records := make([]Record, 0, len(reminders))

	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec := Record{
			ReminderID: r.ID,
			UnitID:     r.UnitID,
			Status:     DispatchSent,
		}

		if err := d.pub.Publish(ctx, r); err != nil {
			slog.Warn("reminder dispatch failed", "unit", r.BlockLot, "recipient", r.Recipient, "error", err)

			rec.Status = DispatchFailed
			rec.Error = err.Error()
		}

		rec.SentAt = d.now()
		records = append(records, rec)
	}

	return records, nil
}

// LogPublisher writes reminders to a logger. It stands in when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, r Reminder) error {
	p.logger.InfoContext(ctx, "reminder",
		"channel", r.Channel,
		"recipient", r.Recipient,
		"subject", r.Subject,
		"days_late", r.DaysLate,
	)

	return nil
}

// Fanout publishes every reminder to each publisher in turn. All publishers
// are tried; their failures are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, r Reminder) error {
	var errs []error

	for _, p := range f {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
