package email

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atrium-id/atrium/internal/auth"
	"github.com/atrium-id/atrium/internal/observability"
	"github.com/atrium-id/atrium/internal/platform/httpx"
	"github.com/atrium-id/atrium/internal/shared"
)

// Handler exposes the email-change JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      *auth.Gate
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, gate *auth.Gate, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers email-change routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/email", h.requestChange)
	r.Post("/email/confirm", h.confirm)
	r.Post("/email/direct", h.directOverwrite)
}

type changeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type confirmRequest struct {
	Code string `json:"code" validate:"required"`
}

type directRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Email  string `json:"email" validate:"required,email"`
}

func (h *Handler) requestChange(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Resolve(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req changeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}

	h.metrics.CountEmailChangeRequest()
	if err := h.service.RequestChange(r.Context(), user, req.Email); err != nil {
		if errors.Is(err, shared.ErrDeliveryFailed) {
			h.metrics.CountMailDeliveryFailure()
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Result{Success: true})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Resolve(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}

	if err := h.service.Confirm(r.Context(), user, req.Code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Result{Success: true})
}

func (h *Handler) directOverwrite(w http.ResponseWriter, r *http.Request) {
	actor, err := h.gate.Resolve(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req directRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}

	if err := h.service.DirectOverwrite(r.Context(), actor, targetID, req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Result{Success: true})
}
