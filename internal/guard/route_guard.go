// Package guard gates protected views on the current session.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/M2labo/mm-lp-page/internal/auth"
	d "github.com/M2labo/mm-lp-page/internal/domain"
)

const LoginPath = "/auth/login"

type Identities interface {
	Current(ctx context.Context, sessionID string) (*auth.Identity, error)
}

type Action int

const (
	// RenderNothing leaves the placeholder to the caller while the state is unknown.
	RenderNothing Action = iota
	Redirect
	Render
)

type Decision struct {
	Action     Action
	RedirectTo string
}

type RouteGuard struct {
	ids Identities
	log *slog.Logger
}

func New(ids Identities, log *slog.Logger) *RouteGuard {
	return &RouteGuard{ids: ids, log: log}
}

// Check reads the session once. A request that goes away before the read resolves
// stays Unknown.
func (g *RouteGuard) Check(ctx context.Context, sessionID string) d.SessionState {
	if ctx.Err() != nil {
		return d.UnknownSession()
	}
	identity, err := g.ids.Current(ctx, sessionID)
	if ctx.Err() != nil {
		return d.UnknownSession()
	}
	if err != nil {
		if !auth.IsUnauthenticated(err) {
			g.log.WarnContext(ctx, "session check failed", slog.Any("error", err))
		}
		return d.Unauthenticated()
	}
	if identity == nil {
		return d.Unauthenticated()
	}
	return d.Authenticated(identity.Claims)
}

func Decide(state d.SessionState, location string) Decision {
	switch state.Status {
	case d.SessionAuthenticated:
		return Decision{Action: Render}
	case d.SessionUnauthenticated:
		return Decision{Action: Redirect, RedirectTo: LoginURL(location)}
	default:
		return Decision{Action: RenderNothing}
	}
}

// LoginURL is the login view carrying the location to return to.
func LoginURL(location string) string {
	if location == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"from": {location}}.Encode()
}

type ctxKey struct{}

func WithState(ctx context.Context, state d.SessionState) context.Context {
	return context.WithValue(ctx, ctxKey{}, state)
}

func StateFromContext(ctx context.Context) (d.SessionState, bool) {
	state, ok := ctx.Value(ctxKey{}).(d.SessionState)
	return state, ok
}

// Middleware evaluates the guard on every request, so a login that completed in
// another tab is picked up on the next navigation.
func (g *RouteGuard) Middleware(sessionID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := g.Check(r.Context(), sessionID(r))
			decision := Decide(state, r.URL.RequestURI())
			switch decision.Action {
			case Render:
				next.ServeHTTP(w, r.WithContext(WithState(r.Context(), state)))
			case Redirect:
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		})
	}
}
