package auth

import (
	"context"
	"time"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	hasher account.Hasher
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher account.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Authenticate validates login/password credentials. Every failure collapses
// to ErrInvalidCredentials so callers cannot distinguish unknown logins from
// wrong passwords.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*account.User, error) {
	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if user.DeletedAt != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
