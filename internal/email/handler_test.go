package email_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-id/atrium/internal/account"
	"github.com/atrium-id/atrium/internal/auth"
	"github.com/atrium-id/atrium/internal/email"
	"github.com/atrium-id/atrium/internal/shared"
	_ "github.com/atrium-id/atrium/testing"
)

func newEmailRouter(t *testing.T, store *userStore, sender *stubSender) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := email.NewService(store, sender, nil, nil, logger)
	handler := email.NewHandler(logger, service, auth.NewGate(store), nil)

	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func authedRequest(t *testing.T, user *account.User, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess := &shared.Session{}
	if user != nil {
		sess.SetUser(user.ID.String())
	}
	return req.WithContext(shared.ContextWithSession(context.Background(), sess))
}

func resultOf(t *testing.T, res *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload.Success, payload.Message
}

func TestRequestChangeEndpoint(t *testing.T) {
	user := confirmedUser()
	store := newUserStore(user)
	sender := &stubSender{}
	router := newEmailRouter(t, store, sender)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, user, http.MethodPost, "/email", `{"email":"new@example.com"}`))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ok, _ := resultOf(t, res); !ok {
		t.Fatalf("expected success payload")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one confirmation mail, got %d", len(sender.sent))
	}
}

func TestRequestChangeSameEmailEndpoint(t *testing.T) {
	user := confirmedUser()
	router := newEmailRouter(t, newUserStore(user), &stubSender{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, user, http.MethodPost, "/email", `{"email":"old@example.com"}`))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	ok, message := resultOf(t, res)
	if ok || message != "Email is the same" {
		t.Fatalf("unexpected payload: success=%v message=%q", ok, message)
	}
}

func TestRequestChangeRequiresSession(t *testing.T) {
	router := newEmailRouter(t, newUserStore(), &stubSender{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, nil, http.MethodPost, "/email", `{"email":"new@example.com"}`))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequestChangeDeliveryFailureEndpoint(t *testing.T) {
	user := confirmedUser()
	router := newEmailRouter(t, newUserStore(user), &stubSender{fail: true})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, user, http.MethodPost, "/email", `{"email":"new@example.com"}`))

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	ok, message := resultOf(t, res)
	if ok || message != "Invalid email" {
		t.Fatalf("unexpected payload: success=%v message=%q", ok, message)
	}
}

func TestConfirmEndpoint(t *testing.T) {
	user := confirmedUser()
	code := "ABC123"
	user.ConfirmCode = &code
	router := newEmailRouter(t, newUserStore(user), &stubSender{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, user, http.MethodPost, "/email/confirm", `{"code":"ABC123"}`))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	bad := httptest.NewRecorder()
	router.ServeHTTP(bad, authedRequest(t, user, http.MethodPost, "/email/confirm", `{"code":"WRONG0"}`))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad code, got %d", bad.Code)
	}
	if _, message := resultOf(t, bad); message != "Invalid code" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestDirectOverwriteEndpointForbidden(t *testing.T) {
	actor := confirmedUser()
	other := confirmedUser()
	router := newEmailRouter(t, newUserStore(actor, other), &stubSender{})

	body := `{"user_id":"` + other.ID.String() + `","email":"direct@example.com"}`
	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, actor, http.MethodPost, "/email/direct", body))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestDirectOverwriteEndpoint(t *testing.T) {
	actor := confirmedUser()
	store := newUserStore(actor)
	router := newEmailRouter(t, store, &stubSender{})

	body := `{"user_id":"` + actor.ID.String() + `","email":"direct@example.com"}`
	res := httptest.NewRecorder()
	router.ServeHTTP(res, authedRequest(t, actor, http.MethodPost, "/email/direct", body))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if store.users[actor.ID].Email != "direct@example.com" {
		t.Fatalf("expected email to be overwritten")
	}
}
