package http

import (
	"context"
	"sync"

	"github.com/M2labo/mm-lp-page/internal/auth"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/poller"
	r "github.com/M2labo/mm-lp-page/internal/repository"
)

type MockCharges struct {
	mu       sync.Mutex
	requests []d.ChargeRequest
	err      error
}

func (m *MockCharges) Submit(_ context.Context, req d.ChargeRequest) (*d.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &d.ChargeResult{Payload: []byte(`{"payment":{"id":"TXN-1","status":"COMPLETED"}}`)}, nil
}

func (m *MockCharges) Sent() []d.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]d.ChargeRequest(nil), m.requests...)
}

type MockQuoteRepo struct {
	mu    sync.Mutex
	items map[string]*d.QuoteRequest
	err   error
}

func NewMockQuoteRepo() *MockQuoteRepo {
	return &MockQuoteRepo{items: make(map[string]*d.QuoteRequest)}
}

func (m *MockQuoteRepo) CreateQuoteRequest(_ context.Context, req *d.QuoteRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if req.ID == "" {
		req.ID = "qr-1"
	}
	m.items[req.ID] = req
	return nil
}

func (m *MockQuoteRepo) GetQuoteRequest(_ context.Context, id string) (*d.QuoteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	req, ok := m.items[id]
	if !ok {
		return nil, r.ErrQuoteRequestNotFound
	}
	return req, nil
}

func (m *MockQuoteRepo) ListQuoteRequestsByEmail(_ context.Context, email string) ([]*d.QuoteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*d.QuoteRequest
	for _, req := range m.items {
		if req.Email == email {
			out = append(out, req)
		}
	}
	return out, nil
}

type MockLoginFlow struct {
	BeginURL    string
	BeginErr    error
	Pending     *auth.PendingLogin
	CompleteErr error
	LogoutErr   error

	BegunWith     []string
	CompletedWith []string
	LoggedOut     []string
}

func (m *MockLoginFlow) BeginLogin(_ context.Context, sessionID, from string) (string, error) {
	m.BegunWith = append(m.BegunWith, sessionID, from)
	return m.BeginURL, m.BeginErr
}

func (m *MockLoginFlow) CompleteLogin(_ context.Context, sessionID, state, code string) (*auth.PendingLogin, error) {
	m.CompletedWith = append(m.CompletedWith, sessionID, state, code)
	if m.CompleteErr != nil {
		return nil, m.CompleteErr
	}
	return m.Pending, nil
}

func (m *MockLoginFlow) Logout(_ context.Context, sessionID string) error {
	m.LoggedOut = append(m.LoggedOut, sessionID)
	return m.LogoutErr
}

type MockReadiness struct {
	Outcome poller.Outcome
	Calls   int
}

func (m *MockReadiness) Await(_ context.Context, _, _ string) poller.Outcome {
	m.Calls++
	return m.Outcome
}

// MockIdentities resolves only the session ids in the map.
type MockIdentities struct {
	Sessions map[string]*auth.Identity
}

func (m *MockIdentities) Current(_ context.Context, sessionID string) (*auth.Identity, error) {
	if id, ok := m.Sessions[sessionID]; ok {
		return id, nil
	}
	return nil, auth.ErrNoSession
}
