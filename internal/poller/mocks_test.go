package poller

import (
	"context"
	"sync"

	"github.com/M2labo/mm-lp-page/internal/auth"
)

type result struct {
	identity *auth.Identity
	err      error
}

// MockIdentities replays scripted results, repeating the last one.
type MockIdentities struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (m *MockIdentities) Current(_ context.Context, _ string) (*auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.results) == 0 {
		return nil, auth.ErrNoSession
	}
	idx := min(m.calls, len(m.results)) - 1
	return m.results[idx].identity, m.results[idx].err
}

func (m *MockIdentities) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
