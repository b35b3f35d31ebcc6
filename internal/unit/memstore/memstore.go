// Package memstore keeps units in process memory. Callers never share a
// pointer with the store: every read and write works on a copy.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type Store struct {
	mu    sync.RWMutex
	units map[uuid.UUID]*unit.Unit
	now   func() time.Time
}

func New(seed ...*unit.Unit) *Store {
	s := &Store{
		units: make(map[uuid.UUID]*unit.Unit, len(seed)),
		now:   time.Now,
	}

	for _, u := range seed {
		c := u.Clone()
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}

		s.units[c.ID] = c
	}

	return s
}

func (s *Store) CreateUnit(_ context.Context, u *unit.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insert(u)

	return nil
}

func (s *Store) CreateUnits(_ context.Context, units []*unit.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range units {
		s.insert(u)
	}

	return nil
}

func (s *Store) insert(u *unit.Unit) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	u.CreatedAt = s.now()
	s.units[u.ID] = u.Clone()
}

func (s *Store) GetUnit(_ context.Context, id uuid.UUID) (*unit.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[id]
	if !ok {
		return nil, unit.ErrNotFound
	}

	return u.Clone(), nil
}

func (s *Store) ListUnits(_ context.Context, filter unit.ListFilter) ([]*unit.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*unit.Unit

	for _, u := range s.units {
		if !matches(u, filter) {
			continue
		}

		out = append(out, u.Clone())
	}

	slices.SortFunc(out, func(a, b *unit.Unit) int {
		return cmp.Or(
			cmp.Compare(a.Project, b.Project),
			cmp.Compare(a.BlockLot, b.BlockLot),
		)
	})

	return out, nil
}

func matches(u *unit.Unit, f unit.ListFilter) bool {
	if f.Project != nil && !strings.EqualFold(u.Project, *f.Project) {
		return false
	}

	if f.Stage != nil && u.Stage != *f.Stage {
		return false
	}

	if f.BuyerEmail != nil && (u.Buyer == nil || !strings.EqualFold(u.Buyer.Email, *f.BuyerEmail)) {
		return false
	}

	return true
}

// UpdateUnit runs fn on a copy under the write lock. Notes only change
// through AppendNote, so the stored log survives whatever fn does to them.
func (s *Store) UpdateUnit(_ context.Context, id uuid.UUID, fn func(u *unit.Unit) error) (*unit.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.units[id]
	if !ok {
		return nil, unit.ErrNotFound
	}

	c := existing.Clone()
	if err := fn(c); err != nil {
		return nil, err
	}

	c.ID = id
	c.Notes = existing.Notes
	c.UpdatedAt = new(s.now())
	s.units[id] = c.Clone()

	return c, nil
}

func (s *Store) DeleteUnit(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return unit.ErrNotFound
	}

	delete(s.units, id)

	return nil
}

func (s *Store) AppendNote(_ context.Context, id uuid.UUID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return unit.ErrNotFound
	}

	u.Notes = append(u.Notes, note)

	return nil
}
