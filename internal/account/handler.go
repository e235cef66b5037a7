package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atrium-id/atrium/internal/observability"
	"github.com/atrium-id/atrium/internal/shared"
	"github.com/atrium-id/atrium/internal/view"
)

// Uploads are bounded well above the avatar cap so oversized files are
// rejected with a field message instead of a transport error.
const maxUploadBytes = 4 << 20

// IdentityGate extracts the caller's identity from the request context.
type IdentityGate interface {
	UserID(ctx context.Context) (uuid.UUID, error)
}

// Handler serves the sign-up and profile pages.
type Handler struct {
	logger    *slog.Logger
	service   *SignUpService
	repo      Repository
	gate      IdentityGate
	stash     *shared.Stash
	audit     *shared.AuditLogger
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   *observability.Metrics
}

// HandlerParams groups the handler dependencies.
type HandlerParams struct {
	Logger    *slog.Logger
	Service   *SignUpService
	Repo      Repository
	Gate      IdentityGate
	Stash     *shared.Stash
	Audit     *shared.AuditLogger
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Metrics   *observability.Metrics
}

// NewHandler constructs a Handler.
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		logger:    p.Logger,
		service:   p.Service,
		repo:      p.Repo,
		gate:      p.Gate,
		stash:     p.Stash,
		audit:     p.Audit,
		templates: p.Templates,
		csrf:      p.CSRF,
		metrics:   p.Metrics,
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/signup", h.showSignUp)
	r.Post("/signup", h.handleSignUp)
	r.Get("/profile", h.showProfile)
}

type signUpPageData struct {
	Result *SignUpResult
}

// showSignUp renders the registration form. When a state token is present
// the staged validation result is retrieved, consumed and re-displayed;
// otherwise the form starts empty.
func (h *Handler) showSignUp(w http.ResponseWriter, r *http.Request) {
	data := signUpPageData{}
	if token := r.URL.Query().Get("state"); token != "" {
		var staged SignUpResult
		err := h.stash.Take(r.Context(), token, &staged)
		switch {
		case err == nil:
			data.Result = &staged
		case errors.Is(err, shared.ErrStashMiss):
			// Expired or replayed token; fall through to a fresh form.
		default:
			h.logger.Error("take staged signup result", slog.Any("error", err))
		}
	}
	h.render(w, r, "pages/signup.html", "Sign up", data, http.StatusOK)
}

// handleSignUp validates the submission, stages the result under a one-time
// token and redirects back to the form.
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseSignUpForm(w, r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.Validate(r.Context(), form)
	if err != nil {
		h.logger.Error("validate signup form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if result.SuccessMessage != "" {
		h.metrics.CountSignup()
	}

	token, err := h.stash.Put(r.Context(), result)
	if err != nil {
		h.logger.Error("stage signup result", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/signup?state="+url.QueryEscape(token), http.StatusSeeOther)
}

func (h *Handler) parseSignUpForm(w http.ResponseWriter, r *http.Request) (SignUpForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return SignUpForm{}, err
	}
	form := SignUpForm{
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
		Email:    r.PostFormValue("email"),
		RealName: r.PostFormValue("real_name"),
	}
	file, header, err := r.FormFile("avatar")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return SignUpForm{}, err
		}
		form.Avatar = data
		form.AvatarFilename = header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		return SignUpForm{}, err
	}
	return form, nil
}

type profilePageData struct {
	Profile *ProfileView
	Trail   []shared.AuditLog
}

// showProfile renders the caller's profile, or an empty page when the
// session does not resolve to a user.
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	data := profilePageData{}

	userID, err := h.gate.UserID(r.Context())
	if err == nil {
		g, ctx := errgroup.WithContext(r.Context())

		var user *User
		g.Go(func() error {
			var err error
			user, err = h.repo.GetByID(ctx, userID)
			return err
		})

		var trail []shared.AuditLog
		if h.audit != nil {
			g.Go(func() error {
				var err error
				trail, err = h.audit.RecentForActor(ctx, userID, 10)
				return err
			})
		}

		if err := g.Wait(); err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				h.logger.Error("load profile", slog.Any("error", err))
			}
		} else {
			profile := NewProfileView(user)
			data.Profile = &profile
			data.Trail = trail
		}
	}

	h.render(w, r, "pages/profile.html", "Profile", data, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
