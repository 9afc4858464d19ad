package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/widget"
)

// MockWidget implements Widget for testing
type MockWidget struct {
	WidgetState   widget.State
	Token         string
	TokenizeErr   error
	VerifyToken   string
	VerifyErr     error
	TokenizeCalls atomic.Int32
	LastDetails   widget.VerificationDetails
}

func (m *MockWidget) State() widget.State {
	return m.WidgetState
}

func (m *MockWidget) Tokenize(_ context.Context) (string, error) {
	m.TokenizeCalls.Add(1)
	return m.Token, m.TokenizeErr
}

func (m *MockWidget) VerifyBuyer(_ context.Context, _ string, details widget.VerificationDetails) (string, error) {
	m.LastDetails = details
	return m.VerifyToken, m.VerifyErr
}

// MockCharges implements ChargeSubmitter for testing
type MockCharges struct {
	Result *d.ChargeResult
	Err    error
	// Gate holds Submit until closed, when set.
	Gate    chan struct{}
	Entered chan struct{}

	mu       sync.Mutex
	Requests []d.ChargeRequest
}

func (m *MockCharges) Submit(_ context.Context, req d.ChargeRequest) (*d.ChargeResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Gate != nil {
		<-m.Gate
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &d.ChargeResult{Payload: json.RawMessage(`{"payment":{"id":"pay_1"}}`)}, nil
}

func (m *MockCharges) Sent() []d.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]d.ChargeRequest(nil), m.Requests...)
}

// MockRecorder implements PurchaseRecorder for testing
type MockRecorder struct {
	Err       error
	Purchases []*d.Purchase
}

func (m *MockRecorder) RecordPurchase(_ context.Context, purchase *d.Purchase) error {
	m.Purchases = append(m.Purchases, purchase)
	return m.Err
}
