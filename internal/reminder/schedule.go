package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

const runTimeout = 5 * time.Minute

// Scheduler sends reminders for the whole portfolio on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
}

// NewScheduler registers a dispatch run for expr, a standard five field cron
// expression such as "0 9 * * 1-5".
func NewScheduler(svc *Service, expr string) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), svc: svc}

	if _, err := s.cron.AddFunc(expr, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parsing reminder schedule %q: %w", expr, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the next run fires.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}

// RunOnce sends one batch and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (sent, failed int) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	_, records, err := s.svc.Send(ctx, unit.ListFilter{})
	if err != nil {
		slog.Error("scheduled reminder run failed", "error", err)
		return 0, 0
	}

	for _, r := range records {
		if r.Status == DispatchSent {
			sent++
		} else {
			failed++
		}
	}

	slog.Info("scheduled reminder run", "sent", sent, "failed", failed)

	return sent, failed
}
