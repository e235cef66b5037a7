// Package email implements the email-change confirmation workflow.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/mail"
	"github.com/atrium-id/atrium/internal/shared"
)

// ConfirmCodeLength is the length of the one-time confirmation token.
const ConfirmCodeLength = 6

// Notifier enqueues best-effort notification mail that must not gate the
// mutation it reports on.
type Notifier interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Service drives the two-step email-change workflow and the direct
// overwrite path.
type Service struct {
	users    account.Repository
	sender   mail.Sender
	notifier Notifier
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a Service. notifier and audit may be nil.
func NewService(users account.Repository, sender mail.Sender, notifier Notifier, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, sender: sender, notifier: notifier, audit: audit, logger: logger}
}

// RequestChange starts a change to newEmail for the given user. The
// confirmation code is delivered before any state is written, so a failed
// send leaves the record untouched.
func (s *Service) RequestChange(ctx context.Context, user *account.User, newEmail string) error {
	if newEmail == user.Email {
		return shared.ErrSameEmail
	}

	code := NewConfirmCode()
	body := fmt.Sprintf("To confirm email enter code <b>%s</b>", code)
	if err := s.sender.Send(ctx, newEmail, "Email changed", body); err != nil {
		s.logger.Warn("send confirmation code", slog.Any("error", err))
		return fmt.Errorf("%w: %w", shared.ErrDeliveryFailed, err)
	}

	user.Email = newEmail
	user.ConfirmCode = &code
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.record(ctx, user.ID, "email.change_requested", map[string]any{"email": newEmail})
	return nil
}

// Confirm clears the pending state when the submitted code matches the
// stored one, including case. Any mismatch leaves the record unchanged.
func (s *Service) Confirm(ctx context.Context, user *account.User, code string) error {
	if user.ConfirmCode == nil || *user.ConfirmCode != code {
		return shared.ErrInvalidCode
	}

	user.ConfirmCode = nil
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.record(ctx, user.ID, "email.confirmed", nil)
	return nil
}

// DirectOverwrite replaces the target user's email without a confirmation
// step. The actor must own the target record; a notification is enqueued to
// the new address but never gates the mutation.
func (s *Service) DirectOverwrite(ctx context.Context, actor *account.User, targetID uuid.UUID, newEmail string) error {
	if actor.ID != targetID {
		return shared.ErrAccessDenied
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrAccessDenied
		}
		return err
	}

	target.Email = newEmail
	if err := s.users.Update(ctx, target); err != nil {
		return err
	}

	if s.notifier != nil {
		body := "Your new email address: " + newEmail
		if err := s.notifier.EnqueueSendEmail(ctx, newEmail, "Email changed", body); err != nil {
			s.logger.Warn("enqueue email notification", slog.Any("error", err))
		}
	}

	s.record(ctx, actor.ID, "email.overwritten", map[string]any{"email": newEmail})
	return nil
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: actorID.String(),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("record email audit", slog.Any("error", err))
	}
}

// NewConfirmCode derives a 6-character uppercase token from a fresh random
// unique value.
func NewConfirmCode() string {
	return strings.ToUpper(uuid.NewString()[:ConfirmCodeLength])
}
