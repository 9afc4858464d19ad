package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/charge"
	"github.com/M2labo/mm-lp-page/internal/pricing"
	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/M2labo/mm-lp-page/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultCurrency    = "JPY"
	DefaultCountryCode = "JP"
	intentCharge       = "CHARGE"
)

// Widget is the part of the payment widget a checkout needs.
type Widget interface {
	State() widget.State
	Tokenize(ctx context.Context) (string, error)
	VerifyBuyer(ctx context.Context, sourceID string, details widget.VerificationDetails) (string, error)
}

type ChargeSubmitter interface {
	Submit(ctx context.Context, req d.ChargeRequest) (*d.ChargeResult, error)
}

type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, purchase *d.Purchase) error
}

type Buyer struct {
	Email      string `json:"email"`
	PostalCode string `json:"postal_code"`
}

type Hooks struct {
	OnSuccess func(*d.ChargeResult)
	OnError   func(error)
}

type SessionOptions struct {
	ViewID      string
	Catalog     *d.Catalog
	Widget      Widget
	Charges     ChargeSubmitter
	Recorder    PurchaseRecorder // optional
	Hooks       Hooks
	Currency    string
	CountryCode string
	Logger      *slog.Logger
}

// CheckoutSession turns a configured selection into one submitted charge.
type CheckoutSession struct {
	opts SessionOptions
	log  *slog.Logger

	mu        sync.Mutex
	inFlight  bool
	submitted bool
	result    *d.ChargeResult
}

func NewCheckoutSession(opts SessionOptions) *CheckoutSession {
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultCountryCode
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &CheckoutSession{
		opts: opts,
		log:  opts.Logger.With(slog.String("view_id", opts.ViewID)),
	}
}

func (s *CheckoutSession) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *CheckoutSession) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Result is the charge payload once the session is submitted.
func (s *CheckoutSession) Result() *d.ChargeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Submit runs one checkout attempt. A trigger while another attempt is outstanding is
// dropped with ErrSubmissionInFlight; guard failures do not reach the error hook.
func (s *CheckoutSession) Submit(ctx context.Context, selection d.Selection, buyer Buyer) (*d.ChargeResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	res, err := s.submit(ctx, selection, buyer)
	if err != nil {
		if s.opts.Hooks.OnError != nil {
			s.opts.Hooks.OnError(err)
		}
		return nil, err
	}
	if s.opts.Hooks.OnSuccess != nil {
		s.opts.Hooks.OnSuccess(res)
	}
	return res, nil
}

func (s *CheckoutSession) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.submitted:
		return ErrAlreadySubmitted
	case s.inFlight:
		return ErrSubmissionInFlight
	case s.opts.Widget.State() != widget.StateAttached:
		return widget.ErrNotReady
	}
	s.inFlight = true
	return nil
}

func (s *CheckoutSession) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *CheckoutSession) submit(ctx context.Context, selection d.Selection, buyer Buyer) (*d.ChargeResult, error) {
	total, err := pricing.ComputeTotal(selection, s.opts.Catalog)
	if err != nil {
		return nil, err
	}

	sourceID, err := s.opts.Widget.Tokenize(ctx)
	if err != nil {
		return nil, tokenizationError(err)
	}

	verificationToken := s.verify(ctx, sourceID, total, buyer)

	res, err := s.opts.Charges.Submit(ctx, d.ChargeRequest{
		SourceID:          sourceID,
		Amount:            total,
		VerificationToken: verificationToken,
	})
	if err != nil {
		return nil, chargeError(err)
	}

	s.mu.Lock()
	s.submitted = true
	s.result = res
	s.mu.Unlock()

	s.log.Info("charge submitted", slog.Int64("amount", total), slog.Bool("verified", verificationToken != nil))
	s.record(ctx, selection, total, buyer, verificationToken != nil, res)
	return res, nil
}

// verify is best-effort: every failure means checkout continues without a token.
func (s *CheckoutSession) verify(ctx context.Context, sourceID string, total int64, buyer Buyer) *string {
	token, err := s.opts.Widget.VerifyBuyer(ctx, sourceID, widget.VerificationDetails{
		Amount:       strconv.FormatInt(total, 10),
		CurrencyCode: s.opts.Currency,
		Intent:       intentCharge,
		BillingContact: widget.BillingContact{
			Email:       buyer.Email,
			PostalCode:  buyer.PostalCode,
			CountryCode: s.opts.CountryCode,
		},
	})
	if err != nil {
		s.log.Warn("buyer verification failed, continuing without token", slog.Any("error", err))
		return nil
	}
	if token == "" {
		return nil
	}
	return &token
}

func (s *CheckoutSession) record(ctx context.Context, selection d.Selection, total int64, buyer Buyer, verified bool, res *d.ChargeResult) {
	if s.opts.Recorder == nil {
		return
	}
	purchase := &d.Purchase{
		ID:             uuid.NewString(),
		ViewID:         s.opts.ViewID,
		Selection:      selection,
		Amount:         total,
		Currency:       s.opts.Currency,
		Email:          buyer.Email,
		Verified:       verified,
		PaymentPayload: res.Payload,
		Status:         d.PurchaseStatusPaid,
		CreatedAt:      time.Now().UTC(),
	}
	// the card is already charged, a ledger failure must not turn into a user-facing error
	if err := s.opts.Recorder.RecordPurchase(context.WithoutCancel(ctx), purchase); err != nil {
		s.log.Error("failed to record purchase", slog.String("purchase_id", purchase.ID), slog.Any("error", err))
	}
}

func tokenizationError(err error) error {
	var tokErr *widget.TokenizationError
	if errors.As(err, &tokErr) {
		return &PaymentError{
			Kind:    TokenizationFailed,
			Message: "Card details could not be processed. Please check them and try again.",
			Status:  tokErr.Status,
			Err:     err,
		}
	}
	if errors.Is(err, widget.ErrNotReady) {
		return err
	}
	return &PaymentError{Kind: TokenizationFailed, Message: "Card details could not be processed.", Status: "ERROR", Err: err}
}

func chargeError(err error) error {
	var rejected *charge.RejectedError
	if errors.As(err, &rejected) {
		return &PaymentError{Kind: ChargeRejected, Message: rejected.Message, Err: err}
	}
	return &PaymentError{
		Kind:    NetworkFailure,
		Message: "Could not reach the payment service. Please try again.",
		Err:     err,
	}
}
