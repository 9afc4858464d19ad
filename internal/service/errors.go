package service

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAlreadySubmitted   = errors.New("checkout session already submitted")
)

type PaymentErrorKind string

const (
	TokenizationFailed PaymentErrorKind = "TOKENIZATION_FAILED"
	ChargeRejected     PaymentErrorKind = "CHARGE_REJECTED"
	NetworkFailure     PaymentErrorKind = "NETWORK_FAILURE"
)

// Sentinels for errors.Is; they match any PaymentError of the same kind.
var (
	ErrTokenizationFailed = &PaymentError{Kind: TokenizationFailed}
	ErrChargeRejected     = &PaymentError{Kind: ChargeRejected}
	ErrNetworkFailure     = &PaymentError{Kind: NetworkFailure}
)

// PaymentError is a user-facing checkout failure. Message is safe to show to the buyer.
type PaymentError struct {
	Kind    PaymentErrorKind
	Message string
	// Status is the SDK tokenization status for TokenizationFailed.
	Status string
	Err    error
}

func (e *PaymentError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}
