package email_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/email"
	"github.com/atrium-id/atrium/internal/shared"
	_ "github.com/atrium-id/atrium/testing"
)

type sentMail struct {
	to, subject, body string
}

type stubSender struct {
	fail bool
	sent []sentMail
}

func (s *stubSender) Send(ctx context.Context, to, subject, body string) error {
	if s.fail {
		return errors.New("relay refused")
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type userStore struct {
	users   map[uuid.UUID]*account.User
	updates int
}

func newUserStore(users ...*account.User) *userStore {
	s := &userStore{users: make(map[uuid.UUID]*account.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) FindByLogin(ctx context.Context, login string) (*account.User, error) {
	return nil, shared.ErrNotFound
}

func (s *userStore) EmailExists(ctx context.Context, e string) (bool, error) { return false, nil }

func (s *userStore) Create(ctx context.Context, user *account.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *userStore) Update(ctx context.Context, user *account.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	s.users[user.ID] = user
	s.updates++
	return nil
}

type stubNotifier struct {
	enqueued []sentMail
	fail     bool
}

func (n *stubNotifier) EnqueueSendEmail(ctx context.Context, to, subject, body string) error {
	if n.fail {
		return errors.New("queue unavailable")
	}
	n.enqueued = append(n.enqueued, sentMail{to: to, subject: subject, body: body})
	return nil
}

func confirmedUser() *account.User {
	return &account.User{
		ID:    uuid.New(),
		Login: "someone",
		Name:  "Someone",
		Email: "old@example.com",
	}
}

func TestRequestChange(t *testing.T) {
	user := confirmedUser()
	store := newUserStore(user)
	sender := &stubSender{}
	svc := email.NewService(store, sender, nil, nil, nil)

	err := svc.RequestChange(context.Background(), user, "new@example.com")
	require.NoError(t, err)

	require.Equal(t, "new@example.com", user.Email)
	require.NotNil(t, user.ConfirmCode)
	require.False(t, user.EmailConfirmed())

	require.Len(t, sender.sent, 1)
	require.Equal(t, "new@example.com", sender.sent[0].to)
	require.Equal(t, "Email changed", sender.sent[0].subject)
	require.Contains(t, sender.sent[0].body, *user.ConfirmCode)
	require.Equal(t, 1, store.updates)
}

func TestRequestChangeSameEmail(t *testing.T) {
	user := confirmedUser()
	svc := email.NewService(newUserStore(user), &stubSender{}, nil, nil, nil)

	err := svc.RequestChange(context.Background(), user, user.Email)
	require.ErrorIs(t, err, shared.ErrSameEmail)
	require.Nil(t, user.ConfirmCode)
}

func TestRequestChangeDeliveryFailureLeavesStateUntouched(t *testing.T) {
	user := confirmedUser()
	store := newUserStore(user)
	svc := email.NewService(store, &stubSender{fail: true}, nil, nil, nil)

	err := svc.RequestChange(context.Background(), user, "new@example.com")
	require.ErrorIs(t, err, shared.ErrDeliveryFailed)

	require.Equal(t, "old@example.com", user.Email)
	require.Nil(t, user.ConfirmCode)
	require.Zero(t, store.updates)
}

func TestConfirm(t *testing.T) {
	user := confirmedUser()
	code := "ABC123"
	user.ConfirmCode = &code
	store := newUserStore(user)
	svc := email.NewService(store, &stubSender{}, nil, nil, nil)

	require.NoError(t, svc.Confirm(context.Background(), user, "ABC123"))
	require.Nil(t, user.ConfirmCode)
	require.True(t, user.EmailConfirmed())
}

func TestConfirmRejectsMismatch(t *testing.T) {
	code := "ABC123"

	cases := []struct {
		name      string
		stored    *string
		submitted string
	}{
		{"wrong code", &code, "XYZ789"},
		{"case mismatch", &code, "abc123"},
		{"nothing pending", nil, "ABC123"},
		{"empty submission", &code, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := confirmedUser()
			user.ConfirmCode = tc.stored
			store := newUserStore(user)
			svc := email.NewService(store, &stubSender{}, nil, nil, nil)

			err := svc.Confirm(context.Background(), user, tc.submitted)
			require.ErrorIs(t, err, shared.ErrInvalidCode)
			require.Equal(t, tc.stored, user.ConfirmCode)
			require.Zero(t, store.updates)
		})
	}
}

func TestDirectOverwrite(t *testing.T) {
	user := confirmedUser()
	store := newUserStore(user)
	notifier := &stubNotifier{}
	svc := email.NewService(store, &stubSender{}, notifier, nil, nil)

	err := svc.DirectOverwrite(context.Background(), user, user.ID, "direct@example.com")
	require.NoError(t, err)
	require.Equal(t, "direct@example.com", store.users[user.ID].Email)

	require.Len(t, notifier.enqueued, 1)
	require.Equal(t, "direct@example.com", notifier.enqueued[0].to)
}

func TestDirectOverwriteRequiresOwnership(t *testing.T) {
	actor := confirmedUser()
	other := confirmedUser()
	store := newUserStore(actor, other)
	svc := email.NewService(store, &stubSender{}, nil, nil, nil)

	err := svc.DirectOverwrite(context.Background(), actor, other.ID, "direct@example.com")
	require.ErrorIs(t, err, shared.ErrAccessDenied)
	require.Equal(t, "old@example.com", store.users[other.ID].Email)
}

func TestDirectOverwriteNotifierFailureDoesNotGate(t *testing.T) {
	user := confirmedUser()
	store := newUserStore(user)
	svc := email.NewService(store, &stubSender{}, &stubNotifier{fail: true}, nil, nil)

	err := svc.DirectOverwrite(context.Background(), user, user.ID, "direct@example.com")
	require.NoError(t, err)
	require.Equal(t, "direct@example.com", store.users[user.ID].Email)
}

func TestNewConfirmCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code := email.NewConfirmCode()
		require.Len(t, code, email.ConfirmCodeLength)
		require.True(t, pattern.MatchString(code), "unexpected code %q", code)
		require.Equal(t, strings.ToUpper(code), code)
		seen[code] = true
	}
	require.Greater(t, len(seen), 1)
}
