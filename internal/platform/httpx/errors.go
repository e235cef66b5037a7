package httpx

import (
	"errors"
	"net/http"

	"github.com/atrium-id/atrium/internal/shared"
)

// StatusFor maps workflow errors to HTTP status codes. All outcomes remain
// "operation not permitted" to the caller; the distinction only shapes the
// status line.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrSameEmail), errors.Is(err, shared.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the structured failure payload for err.
func RespondError(w http.ResponseWriter, err error) {
	JSON(w, StatusFor(err), Result{Success: false, Message: shared.UserSafeMessage(err)})
}
