package sandbox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/M2labo/mm-lp-page/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultUsername = "sandbox-user"
	codeTTL         = time.Minute
	tokenTTL        = time.Hour
)

type IdentityOptions struct {
	// Secret signs HS256 identity tokens; it must match the verifier's secret.
	Secret   string
	Issuer   string
	Audience string
	ClientID string
	Logger   *slog.Logger
}

type grant struct {
	username    string
	clientID    string
	redirectURI string
	challenge   string
	issuedAt    time.Time
}

// IdentityProvider is a hosted login stand-in: Authorize signs the caller in without a
// form and Token redeems the code (PKCE S256 enforced) for an identity token.
type IdentityProvider struct {
	opts IdentityOptions
	now  func() time.Time

	mu     sync.Mutex
	grants map[string]grant
}

func NewIdentityProvider(opts IdentityOptions) *IdentityProvider {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &IdentityProvider{
		opts:   opts,
		now:    time.Now,
		grants: make(map[string]grant),
	}
}

// Authorize handles GET /authorize. The optional username query parameter picks the
// identity to sign in as.
func (p *IdentityProvider) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("response_type") != "code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_response_type")
		return
	}
	if p.opts.ClientID != "" && q.Get("client_id") != p.opts.ClientID {
		writeOAuthError(w, http.StatusBadRequest, "unauthorized_client")
		return
	}
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || !redirect.IsAbs() {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	username := q.Get("username")
	if username == "" {
		username = DefaultUsername
	}

	code := uuid.NewString()
	p.mu.Lock()
	p.purgeLocked()
	p.grants[code] = grant{
		username:    username,
		clientID:    q.Get("client_id"),
		redirectURI: redirect.String(),
		challenge:   q.Get("code_challenge"),
		issuedAt:    p.now(),
	}
	p.mu.Unlock()

	params := redirect.Query()
	params.Set("code", code)
	params.Set("state", q.Get("state"))
	redirect.RawQuery = params.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// Token handles POST /token with grant_type=authorization_code.
func (p *IdentityProvider) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	code := r.PostForm.Get("code")
	p.mu.Lock()
	g, ok := p.grants[code]
	delete(p.grants, code)
	p.mu.Unlock()

	if !ok || p.now().Sub(g.issuedAt) > codeTTL {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}
	if r.PostForm.Get("redirect_uri") != g.redirectURI || r.PostForm.Get("client_id") != g.clientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}
	if !verifyChallenge(r.PostForm.Get("code_verifier"), g.challenge) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	idToken, err := p.sign(g.username)
	if err != nil {
		p.opts.Logger.Error("sign identity token", slog.Any("error", err))
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: uuid.NewString(),
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenTTL / time.Second),
		IDToken:     idToken,
	})
}

func (p *IdentityProvider) sign(username string) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"sub":              uuid.NewSHA1(uuid.NameSpaceURL, []byte(username)).String(),
		"cognito:username": username,
		"email":            username + "@example.com",
		"iat":              now.Unix(),
		"exp":              now.Add(tokenTTL).Unix(),
	}
	if p.opts.Issuer != "" {
		claims["iss"] = p.opts.Issuer
	}
	if p.opts.Audience != "" {
		claims["aud"] = p.opts.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.opts.Secret))
}

// purgeLocked drops codes nobody redeemed.
func (p *IdentityProvider) purgeLocked() {
	now := p.now()
	for code, g := range p.grants {
		if now.Sub(g.issuedAt) > codeTTL {
			delete(p.grants, code)
		}
	}
}

func verifyChallenge(verifier, challenge string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
