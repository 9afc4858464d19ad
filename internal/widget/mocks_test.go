package widget

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockSDK counts client constructions and hands out MockCards.
type MockSDK struct {
	PaymentsCalls atomic.Int32
	PaymentsErr   error
	CardErr       error
	AttachErr     error
	VerifyErr     error
	TokenResult   *TokenResult
	TokenizeErr   error
	// AttachGate blocks Attach until closed, when set.
	AttachGate chan struct{}

	mu    sync.Mutex
	cards []*MockCard
}

func (m *MockSDK) Payments(appID, locationID string) (Payments, error) {
	m.PaymentsCalls.Add(1)
	if m.PaymentsErr != nil {
		return nil, m.PaymentsErr
	}
	return &MockPayments{sdk: m, AppID: appID, LocationID: locationID}, nil
}

func (m *MockSDK) Cards() []*MockCard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockCard(nil), m.cards...)
}

func (m *MockSDK) AttachCalls() int32 {
	var n int32
	for _, c := range m.Cards() {
		n += c.AttachCalls.Load()
	}
	return n
}

type MockPayments struct {
	sdk        *MockSDK
	AppID      string
	LocationID string
}

func (p *MockPayments) Card(_ context.Context) (Card, error) {
	if p.sdk.CardErr != nil {
		return nil, p.sdk.CardErr
	}
	card := &MockCard{sdk: p.sdk}
	p.sdk.mu.Lock()
	p.sdk.cards = append(p.sdk.cards, card)
	p.sdk.mu.Unlock()
	return card, nil
}

func (p *MockPayments) VerifyBuyer(_ context.Context, sourceID string, _ VerificationDetails) (*VerificationResult, error) {
	if p.sdk.VerifyErr != nil {
		return nil, p.sdk.VerifyErr
	}
	return &VerificationResult{Token: "verf:" + sourceID}, nil
}

type MockCard struct {
	sdk          *MockSDK
	AttachCalls  atomic.Int32
	DestroyCalls atomic.Int32
}

func (c *MockCard) Attach(ctx context.Context, container Container) error {
	c.AttachCalls.Add(1)
	if c.sdk.AttachGate != nil {
		select {
		case <-c.sdk.AttachGate:
		case <-ctx.Done():
		}
	}
	if c.sdk.AttachErr != nil {
		return c.sdk.AttachErr
	}
	container.Append("card-input")
	return nil
}

func (c *MockCard) Tokenize(_ context.Context) (*TokenResult, error) {
	if c.sdk.TokenizeErr != nil {
		return nil, c.sdk.TokenizeErr
	}
	if c.sdk.TokenResult != nil {
		return c.sdk.TokenResult, nil
	}
	return &TokenResult{Status: TokenStatusOK, Token: "cnon:card-nonce-ok"}, nil
}

func (c *MockCard) Destroy() error {
	c.DestroyCalls.Add(1)
	return nil
}
