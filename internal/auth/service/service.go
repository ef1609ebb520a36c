// Package service implements username/password login backed by the user store.
package service

import (
	"context"
	"errors"
	"time"

	"skald/backend/internal/platform/apperror"
	"skald/backend/internal/security"
	"skald/backend/internal/user/domain"
	"skald/backend/internal/user/repository"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. Callers must not distinguish the two cases.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users  repository.Repository
	hasher *security.Hasher
	tokens *security.TokenProvider
}

func NewService(users repository.Repository, hasher *security.Hasher, tokens *security.TokenProvider) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies the credentials and issues an access token carrying the
// user's id and superuser flag.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.Integrity("auth.Login", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, _, expiresAt, err := s.tokens.IssueAccess(u.ID, u.Superuser)
	if err != nil {
		return nil, apperror.Integrity("auth.Login", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}
