package domain

// SessionStatus is the tag of SessionState.
type SessionStatus string

const (
	SessionUnknown         SessionStatus = "UNKNOWN"
	SessionAuthenticated   SessionStatus = "AUTHENTICATED"
	SessionUnauthenticated SessionStatus = "UNAUTHENTICATED"
)

// Claims are the identity token claims of an authenticated session.
type Claims map[string]any

// SessionState starts Unknown on every protected-view evaluation and is resolved once.
// Claims is only set when Status is SessionAuthenticated.
type SessionState struct {
	Status SessionStatus
	Claims Claims
}

func UnknownSession() SessionState {
	return SessionState{Status: SessionUnknown}
}

func Authenticated(claims Claims) SessionState {
	return SessionState{Status: SessionAuthenticated, Claims: claims}
}

func Unauthenticated() SessionState {
	return SessionState{Status: SessionUnauthenticated}
}

func (s SessionState) IsAuthenticated() bool {
	return s.Status == SessionAuthenticated
}

func (s SessionState) String() string {
	return string(s.Status)
}
