package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/shared"
)

// UserSource resolves identifiers to stored users.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.User, error)
}

// Gate resolves the caller's session identity to a stored user. The three
// failure modes are distinguished in responses but all mean "operation not
// permitted" to the workflow layer above.
type Gate struct {
	users UserSource
}

// NewGate constructs a Gate.
func NewGate(users UserSource) *Gate {
	return &Gate{users: users}
}

// UserID extracts and parses the session identity without touching the
// store. ErrUnauthenticated when no identity is present, ErrUnauthorized
// when it cannot be parsed.
func (g *Gate) UserID(ctx context.Context) (uuid.UUID, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return uuid.Nil, shared.ErrUnauthenticated
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, shared.ErrUnauthorized
	}
	return id, nil
}

// Resolve returns the stored user behind the session identity.
// ErrAccessDenied when the identifier does not resolve to a record.
func (g *Gate) Resolve(ctx context.Context) (*account.User, error) {
	id, err := g.UserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAccessDenied
		}
		return nil, err
	}
	return user, nil
}
