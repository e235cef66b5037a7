package shared

import "errors"

var (
	// ErrNotFound indicates a record lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated occurs when no session identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized occurs when the session identity cannot be parsed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAccessDenied occurs when the identity does not resolve to a stored user.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidInput covers format, size and duplicate violations.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDeliveryFailed occurs when an outbound email cannot be sent.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrSameEmail occurs when a change request targets the current address.
	ErrSameEmail = errors.New("email is the same")
	// ErrInvalidCode occurs when a confirmation code does not match.
	ErrInvalidCode = errors.New("invalid code")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps workflow errors to messages suitable for response
// payloads. Unknown errors collapse to a generic message so internal detail
// never reaches the caller.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrAccessDenied):
		return "Access denied"
	case errors.Is(err, ErrSameEmail):
		return "Email is the same"
	case errors.Is(err, ErrInvalidCode):
		return "Invalid code"
	case errors.Is(err, ErrDeliveryFailed):
		return "Invalid email"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid login or password"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input"
	default:
		return "Something went wrong"
	}
}
