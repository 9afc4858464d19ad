package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/M2labo/mm-lp-page/internal/auth"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{Name: "storefront_session", Value: id}
}

func TestLogin_IssuesCookieAndRedirects(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.flow.BeginURL = "https://login.example.com/authorize?state=s1"

	recorder := env.do(t, http.MethodGet, "/auth/login?from=%2Fmypage%3Ftab%3Dorders", nil)
	require.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, env.flow.BeginURL, recorder.Header().Get("Location"))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "storefront_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	require.Len(t, env.flow.BegunWith, 2)
	assert.Equal(t, cookies[0].Value, env.flow.BegunWith[0])
	assert.Equal(t, "/mypage?tab=orders", env.flow.BegunWith[1])
}

func TestLogin_ReusesSession(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.flow.BeginURL = "https://login.example.com/authorize"

	recorder := env.do(t, http.MethodGet, "/auth/login", nil, sessionCookie("sid-1"))
	require.Equal(t, http.StatusFound, recorder.Code)
	assert.Empty(t, recorder.Result().Cookies())
	assert.Equal(t, "sid-1", env.flow.BegunWith[0])
}

func TestLogin_StoreFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.flow.BeginErr = errors.New("redis down")

	recorder := env.do(t, http.MethodGet, "/auth/login", nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestCallback(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		cookie      bool
		completeErr error
		outcome     poller.Outcome
		wantStatus  int
		wantTarget  string
		wantAwait   bool
	}{
		{
			name:       "ready",
			path:       "/auth/callback?code=c1&state=s1",
			cookie:     true,
			outcome:    poller.Outcome{Destination: "/mypage", Identity: &auth.Identity{Username: "taro"}, Attempts: 2},
			wantStatus: http.StatusFound,
			wantTarget: "/mypage",
			wantAwait:  true,
		},
		{
			name:       "timed out",
			path:       "/auth/callback?code=c1&state=s1",
			cookie:     true,
			outcome:    poller.Outcome{Destination: "/", Err: poller.ErrTimeout, Attempts: 54},
			wantStatus: http.StatusFound,
			wantTarget: "/",
			wantAwait:  true,
		},
		{
			name:       "missing cookie",
			path:       "/auth/callback?code=c1&state=s1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "unknown state",
			path:        "/auth/callback?code=c1&state=bogus",
			cookie:      true,
			completeErr: auth.ErrNoPendingLogin,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "other browser",
			path:        "/auth/callback?code=c1&state=s1",
			cookie:      true,
			completeErr: auth.ErrSessionMismatch,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:       "provider error",
			path:       "/auth/callback?error=access_denied",
			cookie:     true,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{})
			env.flow.Pending = &auth.PendingLogin{State: "s1", SessionID: "sid-1", From: "/mypage"}
			env.flow.CompleteErr = tt.completeErr
			env.ready.Outcome = tt.outcome

			var cookies []*http.Cookie
			if tt.cookie {
				cookies = append(cookies, sessionCookie("sid-1"))
			}
			recorder := env.do(t, http.MethodGet, tt.path, nil, cookies...)

			require.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantTarget != "" {
				assert.Equal(t, tt.wantTarget, recorder.Header().Get("Location"))
			}
			assert.Equal(t, tt.wantAwait, env.ready.Calls == 1)
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	recorder := env.do(t, http.MethodPost, "/auth/logout", nil, sessionCookie("sid-1"))
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))
	assert.Equal(t, []string{"sid-1"}, env.flow.LoggedOut)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMyPage_Guarded(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.ids.Sessions["sid-1"] = &auth.Identity{
		Username: "taro",
		Claims:   d.Claims{"cognito:username": "taro", "email": "taro@example.com"},
	}

	recorder := env.do(t, http.MethodGet, "/mypage", nil, sessionCookie("sid-1"))
	require.Equal(t, http.StatusOK, recorder.Code)
	var resp MyPageResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "taro", resp.Username)
	assert.Equal(t, "taro@example.com", resp.Claims["email"])

	recorder = env.do(t, http.MethodGet, "/mypage?tab=orders", nil)
	require.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/auth/login?from=%2Fmypage%3Ftab%3Dorders", recorder.Header().Get("Location"))
}

func TestMyPage_WithoutGuardState(t *testing.T) {
	h := NewAuthHandler(&MockLoginFlow{}, &MockReadiness{}, SessionCookie{Name: "s"}, 0, nil)
	recorder := httptest.NewRecorder()
	h.MyPage(recorder, httptest.NewRequest(http.MethodGet, "/mypage", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
