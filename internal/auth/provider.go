package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/M2labo/mm-lp-page/internal/bg"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
	// ExchangeTimeout bounds one background code exchange.
	ExchangeTimeout time.Duration
}

// Provider runs the authorization code flow with PKCE against the hosted login UI.
// Tokens land in the session store asynchronously after the callback returns.
type Provider struct {
	oauth    *oauth2.Config
	logins   LoginStore
	sessions SessionStore
	runner   bg.Runner
	timeout  time.Duration
	group    singleflight.Group
	log      *slog.Logger
}

func NewProvider(cfg ProviderConfig, logins LoginStore, sessions SessionStore, runner bg.Runner, log *slog.Logger) *Provider {
	timeout := cfg.ExchangeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      scopes,
		},
		logins:   logins,
		sessions: sessions,
		runner:   runner,
		timeout:  timeout,
		log:      log,
	}
}

// BeginLogin records a pending login for the session and returns the URL to redirect to.
func (p *Provider) BeginLogin(ctx context.Context, sessionID, from string) (string, error) {
	login := &PendingLogin{
		State:     uuid.NewString(),
		Verifier:  oauth2.GenerateVerifier(),
		SessionID: sessionID,
		From:      from,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.logins.SavePending(ctx, login); err != nil {
		return "", fmt.Errorf("save pending login: %w", err)
	}
	return p.oauth.AuthCodeURL(login.State, oauth2.S256ChallengeOption(login.Verifier)), nil
}

// CompleteLogin consumes the pending login and starts the code exchange in the
// background. The returned login carries the pre-redirect location.
func (p *Provider) CompleteLogin(ctx context.Context, sessionID, state, code string) (*PendingLogin, error) {
	if state == "" || code == "" {
		return nil, ErrNoPendingLogin
	}
	login, err := p.logins.TakePending(ctx, state)
	if err != nil {
		return nil, err
	}
	if login.SessionID != sessionID {
		return nil, ErrSessionMismatch
	}

	p.runner.Do(func() {
		if err := p.exchange(login, code); err != nil {
			p.log.Error("code exchange failed", slog.String("state", login.State), slog.Any("error", err))
		}
	})
	return login, nil
}

func (p *Provider) exchange(login *PendingLogin, code string) error {
	// same code from a repeated callback is exchanged once
	_, err, shared := p.group.Do(code, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(login.Verifier))
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		idToken, _ := tok.Extra("id_token").(string)
		if idToken == "" {
			return nil, errors.New("token response has no id_token")
		}
		tokens := &TokenSet{
			IDToken:      idToken,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		}
		if err := p.sessions.SaveTokens(ctx, login.SessionID, tokens); err != nil {
			return nil, fmt.Errorf("save tokens: %w", err)
		}
		return nil, nil
	})
	if shared {
		p.log.Debug("code exchange shared with concurrent callback")
	}
	return err
}

// Logout signs the session out everywhere this service knows about it.
func (p *Provider) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return p.sessions.DeleteSession(ctx, sessionID)
}
