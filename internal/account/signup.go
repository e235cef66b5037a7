package account

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/atrium-id/atrium/internal/shared"
)

// Field messages surfaced by sign-up validation.
const (
	MsgLoginEmpty      = "Login cannot be empty"
	MsgLoginTooShort   = "Login is too short (minimum 3 characters)"
	MsgLoginTaken      = "This login is already taken"
	MsgPasswordEmpty   = "Password cannot be empty"
	MsgPasswordShort   = "Password is too short (minimum 3 characters)"
	MsgPasswordNoDigit = "Password must contain a digit"
	MsgEmailEmpty      = "Email cannot be empty"
	MsgEmailTooShort   = "Email is too short (minimum 3 characters)"
	MsgEmailInvalid    = "Invalid email format"
	MsgEmailTaken      = "This email is already registered"
	MsgRealNameEmpty   = "Name cannot be empty"
	MsgAvatarTooLarge  = "File is too large (max 1 MiB)"
	MsgSignUpSuccess   = "Registration completed successfully"
)

var digitRE = regexp.MustCompile(`\d`)

// SignUpConfig tunes validation behavior.
type SignUpConfig struct {
	// LegacyCompat reproduces two defects of the original implementation:
	// the email field is validated twice with the second pass overwriting
	// the first (discarding its uniqueness result), oversized avatars are
	// still written to disk, and the success gate ignores the login and
	// real-name messages. Off by default.
	LegacyCompat bool
}

// SignUpService validates registration forms and creates accounts.
type SignUpService struct {
	repo    Repository
	hasher  Hasher
	avatars AvatarStore
	audit   *shared.AuditLogger
	logger  *slog.Logger
	cfg     SignUpConfig
}

// NewSignUpService constructs a SignUpService. audit may be nil.
func NewSignUpService(repo Repository, hasher Hasher, avatars AvatarStore, audit *shared.AuditLogger, logger *slog.Logger, cfg SignUpConfig) *SignUpService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignUpService{repo: repo, hasher: hasher, avatars: avatars, audit: audit, logger: logger, cfg: cfg}
}

// Validate evaluates every field independently and creates the user when the
// form passes. On failure the populated field messages and the submitted
// values come back for re-display; on success the sensitive form fields are
// cleared and the success message is set.
func (s *SignUpService) Validate(ctx context.Context, form SignUpForm) (*SignUpResult, error) {
	result := &SignUpResult{Form: form}

	s.validateLogin(form, result)
	s.validatePassword(form, result)
	if err := s.validateEmail(ctx, form, result); err != nil {
		return nil, err
	}
	s.validateRealName(form, result)

	avatarName, err := s.processAvatar(form, result)
	if err != nil {
		return nil, err
	}

	if !s.passes(result) {
		return result, nil
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.New(),
		Login:        form.Login,
		Name:         form.RealName,
		Email:        form.Email,
		PasswordHash: hash,
		Avatar:       avatarName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// The store-level unique constraints backstop the pre-insert checks.
		switch {
		case errors.Is(err, ErrLoginTaken):
			result.LoginMessage = MsgLoginTaken
			return result, nil
		case errors.Is(err, ErrEmailTaken):
			result.EmailMessage = MsgEmailTaken
			return result, nil
		}
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  user.ID,
			Action:   "account.signup",
			Entity:   "user",
			EntityID: user.ID.String(),
			Meta:     map[string]any{"login": user.Login},
		}); err != nil {
			s.logger.Warn("record signup audit", slog.Any("error", err))
		}
	}

	result.Form.Login = ""
	result.Form.Password = ""
	result.Form.Email = ""
	result.Form.RealName = ""
	result.SuccessMessage = MsgSignUpSuccess
	return result, nil
}

func (s *SignUpService) validateLogin(form SignUpForm, result *SignUpResult) {
	switch {
	case form.Login == "":
		result.LoginMessage = MsgLoginEmpty
	case len(form.Login) < 3:
		result.LoginMessage = MsgLoginTooShort
	}
}

func (s *SignUpService) validatePassword(form SignUpForm, result *SignUpResult) {
	switch {
	case form.Password == "":
		result.PasswordMessage = MsgPasswordEmpty
	case len(form.Password) < 3:
		result.PasswordMessage = MsgPasswordShort
	case !digitRE.MatchString(form.Password):
		result.PasswordMessage = MsgPasswordNoDigit
	}
}

func (s *SignUpService) validateEmail(ctx context.Context, form SignUpForm, result *SignUpResult) error {
	if s.cfg.LegacyCompat {
		return s.validateEmailLegacy(ctx, form, result)
	}
	switch {
	case form.Email == "":
		result.EmailMessage = MsgEmailEmpty
	case len(form.Email) < 7:
		result.EmailMessage = MsgEmailInvalid
	default:
		taken, err := s.repo.EmailExists(ctx, form.Email)
		if err != nil {
			return err
		}
		if taken {
			result.EmailMessage = MsgEmailTaken
		}
	}
	return nil
}

// validateEmailLegacy replays the original double-validation sequence: a
// first pass with non-empty, minimum length 3 and uniqueness checks, then a
// second pass that unconditionally overwrites the slot with non-empty and
// minimum length 7 checks only. A taken address therefore slips through
// whenever the second pass is satisfied.
func (s *SignUpService) validateEmailLegacy(ctx context.Context, form SignUpForm, result *SignUpResult) error {
	switch {
	case form.Email == "":
		result.EmailMessage = MsgEmailEmpty
	case len(form.Email) < 3:
		result.EmailMessage = MsgEmailTooShort
	default:
		taken, err := s.repo.EmailExists(ctx, form.Email)
		if err != nil {
			return err
		}
		if taken {
			result.EmailMessage = MsgEmailTaken
		}
	}

	switch {
	case form.Email == "":
		result.EmailMessage = MsgEmailEmpty
	case len(form.Email) < 7:
		result.EmailMessage = MsgEmailInvalid
	default:
		result.EmailMessage = ""
	}
	return nil
}

func (s *SignUpService) validateRealName(form SignUpForm, result *SignUpResult) {
	if form.RealName == "" {
		result.RealNameMessage = MsgRealNameEmpty
	}
}

func (s *SignUpService) processAvatar(form SignUpForm, result *SignUpResult) (string, error) {
	if len(form.Avatar) == 0 {
		return DefaultAvatar, nil
	}
	if len(form.Avatar) > MaxAvatarBytes {
		result.AvatarMessage = MsgAvatarTooLarge
		if !s.cfg.LegacyCompat {
			return "", nil
		}
		// Legacy behavior wrote the file regardless of the size check.
	}
	return s.avatars.Save(form.AvatarFilename, form.Avatar)
}

func (s *SignUpService) passes(result *SignUpResult) bool {
	if s.cfg.LegacyCompat {
		// Observed gate: login and real-name messages were never consulted.
		return result.EmailMessage == "" && result.PasswordMessage == "" && result.AvatarMessage == ""
	}
	return result.FieldsValid()
}
