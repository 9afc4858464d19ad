// Package auth keeps redirect-login sessions: pending logins, the token sets written once
// the code exchange completes, and identity token validation.
package auth

import (
	"context"
	"errors"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
)

var (
	// ErrNoSession means the session has no tokens (yet).
	ErrNoSession       = errors.New("no session")
	ErrNoPendingLogin  = errors.New("no pending login for state")
	ErrSessionMismatch = errors.New("login was started by another session")
	ErrInvalidToken    = errors.New("invalid identity token")
)

type TokenSet struct {
	IDToken      string    `json:"id_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// PendingLogin lives between the redirect to the identity provider and its callback.
type PendingLogin struct {
	State     string    `json:"state"`
	Verifier  string    `json:"verifier"`
	SessionID string    `json:"session_id"`
	From      string    `json:"from,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Identity struct {
	Username string   `json:"username"`
	Claims   d.Claims `json:"claims"`
}

type SessionStore interface {
	// Tokens returns ErrNoSession when nothing has been written for the session.
	Tokens(ctx context.Context, sessionID string) (*TokenSet, error)
	SaveTokens(ctx context.Context, sessionID string, tokens *TokenSet) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type LoginStore interface {
	SavePending(ctx context.Context, login *PendingLogin) error
	// TakePending returns and removes the login, so a state is usable once.
	TakePending(ctx context.Context, state string) (*PendingLogin, error)
}

type TokenVerifier interface {
	Verify(idToken string) (d.Claims, error)
}

// Identities answers "who is signed in" for a session in a single read.
type Identities struct {
	store    SessionStore
	verifier TokenVerifier
}

func NewIdentities(store SessionStore, verifier TokenVerifier) *Identities {
	return &Identities{store: store, verifier: verifier}
}

func (i *Identities) Current(ctx context.Context, sessionID string) (*Identity, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	tokens, err := i.store.Tokens(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tokens.IDToken == "" {
		return nil, ErrNoSession
	}
	claims, err := i.verifier.Verify(tokens.IDToken)
	if err != nil {
		return nil, err
	}
	return &Identity{Username: Username(claims), Claims: claims}, nil
}

// IsUnauthenticated reports whether an error from Current means nobody is signed in
// (yet), as opposed to the session store failing.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrInvalidToken)
}

// Username picks the display name the identity provider put into the token.
func Username(claims d.Claims) string {
	for _, key := range []string{"cognito:username", "preferred_username", "email", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
