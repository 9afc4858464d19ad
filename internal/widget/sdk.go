package widget

import (
	"context"
	"errors"
	"time"
)

// TokenStatusOK is the only tokenize status that carries a usable token.
const TokenStatusOK = "OK"

// SDK is the payment SDK's client factory, keyed by application id and location id.
type SDK interface {
	Payments(appID, locationID string) (Payments, error)
}

// Payments is the client built by the SDK for one application/location pair.
type Payments interface {
	Card(ctx context.Context) (Card, error)
	VerifyBuyer(ctx context.Context, sourceID string, details VerificationDetails) (*VerificationResult, error)
}

// Card is the third-party-rendered card entry surface.
type Card interface {
	Attach(ctx context.Context, container Container) error
	Tokenize(ctx context.Context) (*TokenResult, error)
}

// Destroyer is implemented by card surfaces that hold releasable resources.
type Destroyer interface {
	Destroy() error
}

type TokenResult struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

type BillingContact struct {
	Email       string `json:"email,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode"`
}

type VerificationDetails struct {
	Amount         string         `json:"amount"`
	CurrencyCode   string         `json:"currencyCode"`
	Intent         string         `json:"intent"`
	BillingContact BillingContact `json:"billingContact"`
}

type VerificationResult struct {
	Token string `json:"token"`
}

// Probe reports the SDK once it has finished loading.
type Probe func() (SDK, bool)

var ErrSDKUnavailable = errors.New("payment sdk did not become available")

// WaitForSDK polls probe every interval until it reports the SDK, the timeout elapses or
// ctx is done. A non-positive timeout means only ctx bounds the wait.
func WaitForSDK(ctx context.Context, probe Probe, interval, timeout time.Duration) (SDK, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if sdk, ok := probe(); ok {
			return sdk, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrSDKUnavailable
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Static returns a probe for an SDK that is already loaded.
func Static(sdk SDK) Probe {
	return func() (SDK, bool) { return sdk, true }
}
