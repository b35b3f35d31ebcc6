package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type Service struct {
	units  *unit.Service
	parser *Parser
}

func NewService(units *unit.Service) *Service {
	return &Service{
		units:  units,
		parser: NewParser(),
	}
}

// ImportResult lists the created units and the rows that were skipped.
type ImportResult struct {
	Parsed  *Parsed
	Created []*unit.Unit
}

// Import parses an export and creates every valid row in one batch. Invalid
// rows are reported, not fatal.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parsed, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	slog.Info("parsed unit import",
		"profile", parsed.Profile,
		"charset", parsed.Charset,
		"rows", len(parsed.Params),
		"rejected", len(parsed.Errors),
	)

	created, err := s.units.CreateBatch(ctx, parsed.Params)
	if err != nil {
		return nil, err
	}

	return &ImportResult{Parsed: parsed, Created: created}, nil
}

// NoteResult is the outcome of a bulk note for one unit.
type NoteResult struct {
	UnitID uuid.UUID
	Err    error
}

// AddNote appends the same note to each unit. An empty note fails the whole
// call; per-unit failures are reported in the results.
func (s *Service) AddNote(ctx context.Context, ids []uuid.UUID, note string) ([]NoteResult, error) {
	if len(ids) == 0 {
		return nil, errors.New("no units selected")
	}

	results := make([]NoteResult, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		err := s.units.AddNote(ctx, id, note)
		if errors.Is(err, unit.ErrEmptyNote) {
			return nil, err
		}

		if err != nil && !errors.Is(err, unit.ErrNotFound) {
			err = fmt.Errorf("adding note: %w", err)
		}

		results = append(results, NoteResult{UnitID: id, Err: err})
	}

	return results, nil
}
