// Package sandbox stands in for the hosted payment SDK and the charge backend in local
// and test environments.
package sandbox

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/google/uuid"
)

// StatusSource decides the tokenization status of the next Tokenize call.
type StatusSource interface {
	Status() string
}

type RandomStatus struct{}

func (RandomStatus) Status() string {
	return calcStatus(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

var failureStatuses = []string{"INVALID", "ABORTED", "UNKNOWN", "ERROR"}

func calcStatus(randomInt int) string {
	if randomInt < 95 {
		return widget.TokenStatusOK
	}
	reason := randomInt - 95
	if reason == 0 || reason > len(failureStatuses) {
		return "FAILED"
	}
	return failureStatuses[reason-1]
}

type FixedStatus string

func (s FixedStatus) Status() string {
	return string(s)
}

var ErrMissingCredentials = errors.New("application id and location id are required")

// SDK becomes available LoadDelay after creation, like a script tag finishing its load.
type SDK struct {
	loadedAt time.Time
	statuses StatusSource

	mu    sync.Mutex
	cards int
}

func NewSDK(loadDelay time.Duration, statuses StatusSource) *SDK {
	if statuses == nil {
		statuses = RandomStatus{}
	}
	return &SDK{loadedAt: time.Now().Add(loadDelay), statuses: statuses}
}

// Probe reports the SDK once its load delay has passed.
func (s *SDK) Probe() widget.Probe {
	return func() (widget.SDK, bool) {
		if time.Now().Before(s.loadedAt) {
			return nil, false
		}
		return s, true
	}
}

// LiveCards is the number of card surfaces created and not yet destroyed.
func (s *SDK) LiveCards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards
}

func (s *SDK) Payments(appID, locationID string) (widget.Payments, error) {
	if appID == "" || locationID == "" {
		return nil, ErrMissingCredentials
	}
	return &payments{sdk: s, locationID: locationID}, nil
}

type payments struct {
	sdk        *SDK
	locationID string
}

func (p *payments) Card(ctx context.Context) (widget.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.sdk.mu.Lock()
	p.sdk.cards++
	p.sdk.mu.Unlock()
	return &card{sdk: p.sdk, name: "sandbox-card:" + p.locationID}, nil
}

func (p *payments) VerifyBuyer(ctx context.Context, sourceID string, details widget.VerificationDetails) (*widget.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sourceID == "" {
		return nil, errors.New("verify buyer: empty source id")
	}
	if details.Intent == "" || details.Amount == "" {
		return nil, errors.New("verify buyer: amount and intent are required")
	}
	return &widget.VerificationResult{Token: "verf:" + uuid.NewString()}, nil
}

type card struct {
	sdk  *SDK
	name string

	mu        sync.Mutex
	attached  bool
	destroyed bool
}

func (c *card) Attach(ctx context.Context, container widget.Container) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return errors.New("card surface destroyed")
	}
	if c.attached {
		return errors.New("card surface already attached")
	}
	container.Append(c.name)
	c.attached = true
	return nil
}

func (c *card) Tokenize(ctx context.Context) (*widget.TokenResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	attached := c.attached && !c.destroyed
	c.mu.Unlock()
	if !attached {
		return nil, errors.New("card surface is not attached")
	}
	status := c.sdk.statuses.Status()
	if status != widget.TokenStatusOK {
		return &widget.TokenResult{Status: status}, nil
	}
	return &widget.TokenResult{Status: status, Token: "cnon:" + uuid.NewString()}, nil
}

func (c *card) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	c.sdk.mu.Lock()
	c.sdk.cards--
	c.sdk.mu.Unlock()
	return nil
}
