package reminder

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

// History persists reminders and their dispatch outcomes.
type History interface {
	SaveDispatch(ctx context.Context, reminders []Reminder, records []Record) error
}

type Service struct {
	units      *unit.Service
	dispatcher *Dispatcher
	history    History
}

// NewService wires reminders to the unit service. history may be nil.
func NewService(units *unit.Service, pub Publisher, history History) *Service {
	return &Service{
		units:      units,
		dispatcher: NewDispatcher(pub),
		history:    history,
	}
}

// Preview composes the reminders that Send would dispatch.
func (s *Service) Preview(ctx context.Context, filter unit.ListFilter) ([]Reminder, error) {
	assessed, err := s.units.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	return Compose(assessed, s.units.Now()), nil
}

// Send composes and dispatches reminders for the matching units.
func (s *Service) Send(ctx context.Context, filter unit.ListFilter) ([]Reminder, []Record, error) {
	reminders, err := s.Preview(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	records, err := s.dispatcher.Dispatch(ctx, reminders)
	if err != nil {
		return reminders, records, fmt.Errorf("dispatching reminders: %w", err)
	}

	if s.history != nil && len(reminders) > 0 {
		if err := s.history.SaveDispatch(ctx, reminders, records); err != nil {
			return reminders, records, fmt.Errorf("saving dispatch history: %w", err)
		}
	}

	return reminders, records, nil
}
