package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/auth"
	"github.com/atrium-id/atrium/internal/shared"
	_ "github.com/atrium-id/atrium/testing"
)

type stubUserSource struct {
	user *account.User
}

func (s *stubUserSource) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func sessionContext(userID string) context.Context {
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return shared.ContextWithSession(context.Background(), sess)
}

func TestGateUserID(t *testing.T) {
	gate := auth.NewGate(&stubUserSource{})

	id := uuid.New()
	got, err := gate.UserID(sessionContext(id.String()))
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestGateUnauthenticated(t *testing.T) {
	gate := auth.NewGate(&stubUserSource{})

	_, err := gate.UserID(context.Background())
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = gate.UserID(sessionContext(""))
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestGateMalformedIdentity(t *testing.T) {
	gate := auth.NewGate(&stubUserSource{})

	_, err := gate.UserID(sessionContext("not-a-uuid"))
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestGateResolve(t *testing.T) {
	user := activeUser()
	gate := auth.NewGate(&stubUserSource{user: user})

	got, err := gate.Resolve(sessionContext(user.ID.String()))
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestGateResolveUnknownUser(t *testing.T) {
	gate := auth.NewGate(&stubUserSource{})

	_, err := gate.Resolve(sessionContext(uuid.NewString()))
	require.ErrorIs(t, err, shared.ErrAccessDenied)
}
