// Package memstore keeps users in memory for the demo backend.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]auth.User
}

func New(users ...*auth.User) *Store {
	s := &Store{users: make(map[string]auth.User, len(users))}
	for _, u := range users {
		s.users[strings.ToLower(u.Email)] = *u
	}

	return s
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}

	return &u, nil
}
