package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/M2labo/mm-lp-page/internal/auth"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/guard"
	"github.com/M2labo/mm-lp-page/internal/poller"
)

type LoginFlow interface {
	BeginLogin(ctx context.Context, sessionID, from string) (string, error)
	CompleteLogin(ctx context.Context, sessionID, state, code string) (*auth.PendingLogin, error)
	Logout(ctx context.Context, sessionID string) error
}

type Readiness interface {
	Await(ctx context.Context, sessionID, from string) poller.Outcome
}

type AuthHandler struct {
	flow      LoginFlow
	readiness Readiness
	cookie    SessionCookie
	timeout   time.Duration
	log       *slog.Logger
}

func NewAuthHandler(flow LoginFlow, readiness Readiness, cookie SessionCookie, timeout time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{flow: flow, readiness: readiness, cookie: cookie, timeout: timeout, log: log}
}

type MyPageResponseDTO struct {
	Username string   `json:"username"`
	Claims   d.Claims `json:"claims"`
}

// GET /auth/login?from=
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := h.cookie.Ensure(w, r)
	target, err := h.flow.BeginLogin(ctx, sessionID, r.URL.Query().Get("from"))
	if err != nil {
		h.log.ErrorContext(ctx, "begin login", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "could not start login")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// GET /auth/callback?code=&state=
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		respondErrorDetails(w, http.StatusBadRequest, "login_failed", "login was not completed", providerErr)
		return
	}
	sessionID := h.cookie.ID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "session cookie is missing")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	login, err := h.flow.CompleteLogin(ctx, sessionID, q.Get("state"), q.Get("code"))
	cancel()
	switch {
	case errors.Is(err, auth.ErrNoPendingLogin), errors.Is(err, auth.ErrSessionMismatch):
		respondError(w, http.StatusBadRequest, "invalid_login", "login request is unknown or expired")
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "complete login", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "could not complete login")
		return
	}

	outcome := h.readiness.Await(r.Context(), sessionID, login.From)
	if outcome.Destination == "" {
		// client went away
		return
	}
	if outcome.Err != nil {
		h.log.WarnContext(r.Context(), "session not ready after login",
			slog.Int("attempts", outcome.Attempts), slog.Any("error", outcome.Err))
	}
	http.Redirect(w, r, outcome.Destination, http.StatusFound)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.flow.Logout(ctx, h.cookie.ID(r)); err != nil {
		h.log.ErrorContext(ctx, "logout", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "could not sign out")
		return
	}
	h.cookie.Clear(w)
	http.Redirect(w, r, poller.FallbackDestination, http.StatusSeeOther)
}

// GET /mypage, behind the route guard.
func (h *AuthHandler) MyPage(w http.ResponseWriter, r *http.Request) {
	state, ok := guard.StateFromContext(r.Context())
	if !ok || !state.IsAuthenticated() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, http.StatusOK, MyPageResponseDTO{
		Username: auth.Username(state.Claims),
		Claims:   state.Claims,
	})
}
