package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/auth"
	"github.com/atrium-id/atrium/internal/shared"
	_ "github.com/atrium-id/atrium/testing"
)

type stubRepo struct {
	user            *account.User
	createdSessions []string
	deletedSessions []string
}

func (s *stubRepo) FindByLogin(ctx context.Context, login string) (*account.User, error) {
	if s.user == nil || s.user.Login != login {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	s.createdSessions = append(s.createdSessions, id)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.deletedSessions = append(s.deletedSessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Verify(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

func activeUser() *account.User {
	return &account.User{
		ID:           uuid.New(),
		Login:        "someone",
		Email:        "someone@example.com",
		PasswordHash: "hashed:correct1",
	}
}

func TestAuthenticate(t *testing.T) {
	repo := &stubRepo{user: activeUser()}
	svc := auth.NewService(repo, stubHasher{})

	user, err := svc.Authenticate(context.Background(), "someone", "correct1")
	require.NoError(t, err)
	require.Equal(t, repo.user.ID, user.ID)
}

func TestAuthenticateFailuresCollapse(t *testing.T) {
	deleted := activeUser()
	now := time.Now()
	deleted.DeletedAt = &now

	cases := []struct {
		name     string
		repo     *stubRepo
		login    string
		password string
	}{
		{"unknown login", &stubRepo{}, "nobody", "correct1"},
		{"wrong password", &stubRepo{user: activeUser()}, "someone", "wrong"},
		{"deleted user", &stubRepo{user: deleted}, "someone", "correct1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := auth.NewService(tc.repo, stubHasher{})
			_, err := svc.Authenticate(context.Background(), tc.login, tc.password)
			require.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := &stubRepo{user: activeUser()}
	svc := auth.NewService(repo, stubHasher{})

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-1", repo.user.ID.String(), time.Now().Add(time.Hour), "127.0.0.1", "ua"))
	require.Equal(t, []string{"sess-1"}, repo.createdSessions)

	require.NoError(t, svc.RemoveSession(context.Background(), "sess-1"))
	require.Equal(t, []string{"sess-1"}, repo.deletedSessions)
}
