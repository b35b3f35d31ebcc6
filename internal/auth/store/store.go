package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindUserByEmail returns nil without error when no user has the email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT id, organization_id, email, full_name, role, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`

	var (
		u    auth.User
		role string
	)

	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.OrganizationID, &u.Email, &u.FullName, &role, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	u.Role, err = auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.Email, err)
	}

	return &u, nil
}
