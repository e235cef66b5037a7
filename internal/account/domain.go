package account

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAvatar is the sentinel avatar reference used when no photo was
// uploaded.
const DefaultAvatar = "no-photo.png"

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Login        string
	Name         string
	Email        string
	PasswordHash string
	ConfirmCode  *string
	Avatar       string
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

// EmailConfirmed reports whether the current email address has been
// confirmed. A nil ConfirmCode is the sole signal.
func (u *User) EmailConfirmed() bool {
	return u.ConfirmCode == nil
}

// SignUpForm is one submitted registration attempt. It exists only for the
// duration of a single validation call; the password is consumed immediately.
type SignUpForm struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
	RealName string `json:"real_name"`

	// Avatar upload is optional and never serialized into staged results.
	Avatar         []byte `json:"-"`
	AvatarFilename string `json:"-"`
}

// SignUpResult holds one message slot per validated field. An empty message
// means the field passed; every slot is computed independently.
type SignUpResult struct {
	LoginMessage    string `json:"login_message,omitempty"`
	PasswordMessage string `json:"password_message,omitempty"`
	EmailMessage    string `json:"email_message,omitempty"`
	RealNameMessage string `json:"real_name_message,omitempty"`
	AvatarMessage   string `json:"avatar_message,omitempty"`
	SuccessMessage  string `json:"success_message,omitempty"`

	// Form echoes the submitted values back for re-display on failure.
	Form SignUpForm `json:"form"`
}

// FieldsValid reports whether every field message slot is clear.
func (r *SignUpResult) FieldsValid() bool {
	return r.LoginMessage == "" &&
		r.PasswordMessage == "" &&
		r.EmailMessage == "" &&
		r.RealNameMessage == "" &&
		r.AvatarMessage == ""
}

// ProfileView is the read model rendered on the profile page.
type ProfileView struct {
	Login            string
	Name             string
	Email            string
	Avatar           string
	CreatedAt        time.Time
	IsEmailConfirmed bool
}

// NewProfileView projects a user into its profile representation.
func NewProfileView(u *User) ProfileView {
	avatar := u.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	return ProfileView{
		Login:            u.Login,
		Name:             u.Name,
		Email:            u.Email,
		Avatar:           avatar,
		CreatedAt:        u.CreatedAt,
		IsEmailConfirmed: u.EmailConfirmed(),
	}
}
