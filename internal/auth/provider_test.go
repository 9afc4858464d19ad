package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/M2labo/mm-lp-page/internal/bg"
	"github.com/M2labo/mm-lp-page/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenServer struct {
	*httptest.Server
	calls    atomic.Int32
	verifier atomic.Value
}

func newTokenServer(t *testing.T, idToken string) *tokenServer {
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "good-code", r.Form.Get("code"))
		ts.verifier.Store(r.Form.Get("code_verifier"))
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestProvider(t *testing.T, tokenURL string) (*Provider, *RedisStore) {
	store, _ := setupTestRedis(t)
	p := NewProvider(ProviderConfig{
		ClientID:    "client-1",
		AuthURL:     "https://idp.example.com/oauth2/authorize",
		TokenURL:    tokenURL,
		RedirectURL: "https://shop.example.com/auth/callback",
	}, store, store, bg.Sync{}, logger.Nop())
	return p, store
}

func TestBeginLogin(t *testing.T) {
	p, store := newTestProvider(t, "http://unused")

	redirect, err := p.BeginLogin(context.Background(), "sid-1", "/mypage")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "openid email profile", q.Get("scope"))

	login, err := store.TakePending(context.Background(), q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "sid-1", login.SessionID)
	assert.Equal(t, "/mypage", login.From)
	assert.NotEmpty(t, login.Verifier)
}

func TestCompleteLogin_StoresTokens(t *testing.T) {
	idToken := signToken(t, validClaims(), jwt.SigningMethodHS256, []byte(testSecret))
	ts := newTokenServer(t, idToken)
	p, store := newTestProvider(t, ts.URL)
	ctx := context.Background()

	redirect, err := p.BeginLogin(ctx, "sid-1", "/mypage")
	require.NoError(t, err)
	u, _ := url.Parse(redirect)
	state := u.Query().Get("state")

	login, err := p.CompleteLogin(ctx, "sid-1", state, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "/mypage", login.From)

	tokens, err := store.Tokens(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, idToken, tokens.IDToken)
	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tokens.Expiry, time.Minute)
	assert.Equal(t, login.Verifier, ts.verifier.Load())

	identity, err := NewIdentities(store, NewHMACVerifier(testSecret, "", "", 0)).Current(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "taro", identity.Username)

	_, err = p.CompleteLogin(ctx, "sid-1", state, "good-code")
	assert.ErrorIs(t, err, ErrNoPendingLogin, "state is single use")
	assert.Equal(t, int32(1), ts.calls.Load())
}

func TestCompleteLogin_SessionMismatch(t *testing.T) {
	p, _ := newTestProvider(t, "http://unused")
	ctx := context.Background()

	redirect, err := p.BeginLogin(ctx, "sid-1", "")
	require.NoError(t, err)
	u, _ := url.Parse(redirect)

	_, err = p.CompleteLogin(ctx, "sid-2", u.Query().Get("state"), "good-code")
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestCompleteLogin_MissingParams(t *testing.T) {
	p, _ := newTestProvider(t, "http://unused")
	_, err := p.CompleteLogin(context.Background(), "sid-1", "", "code")
	assert.ErrorIs(t, err, ErrNoPendingLogin)
}

func TestExchange_NoIDToken(t *testing.T) {
	ts := newTokenServer(t, "")
	p, store := newTestProvider(t, ts.URL)

	err := p.exchange(&PendingLogin{SessionID: "sid-1", Verifier: "v"}, "good-code")
	assert.ErrorContains(t, err, "id_token")

	_, err = store.Tokens(context.Background(), "sid-1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLogout(t *testing.T) {
	p, store := newTestProvider(t, "http://unused")
	ctx := context.Background()
	require.NoError(t, store.SaveTokens(ctx, "sid-1", &TokenSet{IDToken: "id"}))

	require.NoError(t, p.Logout(ctx, "sid-1"))
	_, err := store.Tokens(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, p.Logout(ctx, ""))
}

func TestIdentities_Current(t *testing.T) {
	store, _ := setupTestRedis(t)
	ids := NewIdentities(store, NewHMACVerifier(testSecret, "", "", 0))
	ctx := context.Background()

	_, err := ids.Current(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.SaveTokens(ctx, "sid-1", &TokenSet{AccessToken: "only-access"}))
	_, err = ids.Current(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.SaveTokens(ctx, "sid-1", &TokenSet{IDToken: "bogus"}))
	_, err = ids.Current(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
