package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=auth
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

type Service struct {
	repo   Repository
	tokens *Tokens
}

func NewService(repo Repository, tokens *Tokens) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login checks the password and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, fmt.Errorf("finding user: %w", err)
	}

	if u == nil || !CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// Authorize parses a token and checks it grants the capability.
func (s *Service) Authorize(token string, c Capability) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if !claims.Role.Can(c) {
		return nil, fmt.Errorf("%w: role %s lacks %s", ErrForbidden, claims.Role, c)
	}

	return claims, nil
}

// HashPassword bcrypt-hashes a password. A cost of 0 means bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(b), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
