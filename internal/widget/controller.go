// Package widget owns the lifecycle of the embedded card entry surface: one
// initialization and one attachment per mount, tokenization on demand and a teardown
// that always leaves the mount point empty.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/M2labo/mm-lp-page/internal/bg"
)

var ErrNotReady = errors.New("payment widget is not attached")

// TokenizationError is returned when the SDK reports a status other than OK.
type TokenizationError struct {
	Status string
	Err    error
}

func (e *TokenizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tokenize failed: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("tokenize failed: %s", e.Status)
}

func (e *TokenizationError) Unwrap() error {
	return e.Err
}

// DefaultSDKTimeout applies when Config.SDKTimeout is not set.
const DefaultSDKTimeout = 10 * time.Second

type Config struct {
	AppID      string
	LocationID string
	// PollInterval is how often SDK availability is probed.
	PollInterval time.Duration
	// SDKTimeout bounds the wait for the SDK to load.
	SDKTimeout time.Duration
}

type Callbacks struct {
	// OnReady fires once the card surface is attached.
	OnReady func()
	// OnError receives initialization failures. It never fires after Teardown.
	OnError func(error)
}

type Controller struct {
	cfg       Config
	probe     Probe
	runner    bg.Runner
	callbacks Callbacks
	log       *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	container Container
	payments  Payments
	card      Card
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewController(cfg Config, probe Probe, runner bg.Runner, callbacks Callbacks, log *slog.Logger) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Millisecond
	}
	if cfg.SDKTimeout <= 0 {
		cfg.SDKTimeout = DefaultSDKTimeout
	}
	return &Controller{
		cfg:       cfg,
		probe:     probe,
		runner:    runner,
		callbacks: callbacks,
		log:       log,
		state:     StateUninitialized,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the initialization failure once the controller is Failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the initialization started by Begin has finished, successfully or
// not. It is nil before Begin.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Begin starts the asynchronous initialization. Only the first call per controller does
// anything, later calls (including after Teardown) return immediately.
func (c *Controller) Begin(container Container) {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.state = StateInitializing
	c.container = container
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.runner.Do(func() {
		defer close(done)
		c.initialize(ctx, container)
	})
}

func (c *Controller) initialize(ctx context.Context, container Container) {
	sdk, err := WaitForSDK(ctx, c.probe, c.cfg.PollInterval, c.cfg.SDKTimeout)
	if err != nil {
		c.fail(ctx, fmt.Errorf("wait for sdk: %w", err))
		return
	}

	payments, err := sdk.Payments(c.cfg.AppID, c.cfg.LocationID)
	if err != nil {
		c.fail(ctx, fmt.Errorf("create payments client: %w", err))
		return
	}
	if !c.keep(ctx, func() { c.payments = payments }) {
		return
	}

	// leftovers from a previous mount of the same container
	container.Clear()

	card, err := payments.Card(ctx)
	if err != nil {
		c.fail(ctx, fmt.Errorf("create card: %w", err))
		return
	}
	if !c.keep(ctx, func() { c.card = card }) {
		destroy(card, c.log)
		return
	}

	if err := card.Attach(ctx, container); err != nil {
		c.fail(ctx, fmt.Errorf("attach card: %w", err))
		return
	}

	c.mu.Lock()
	if ctx.Err() != nil || c.state != StateInitializing {
		// torn down while attaching: the surface may have rendered after Teardown cleared
		c.mu.Unlock()
		container.Clear()
		return
	}
	c.state = StateAttached
	c.mu.Unlock()

	c.log.Debug("payment widget attached")
	if c.callbacks.OnReady != nil {
		c.callbacks.OnReady()
	}
}

// keep stores an initialization result unless the controller was torn down meanwhile.
func (c *Controller) keep(ctx context.Context, store func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || c.state != StateInitializing {
		return false
	}
	store()
	return true
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.mu.Lock()
	if ctx.Err() != nil || c.state != StateInitializing {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.err = err
	card := c.card
	c.card = nil
	c.mu.Unlock()

	destroy(card, c.log)
	c.log.Error("payment widget init failed", slog.Any("error", err))
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

// Tokenize asks the card surface for a single-use source token.
func (c *Controller) Tokenize(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != StateAttached {
		c.mu.Unlock()
		return "", ErrNotReady
	}
	card := c.card
	c.mu.Unlock()

	res, err := card.Tokenize(ctx)
	if err != nil {
		return "", &TokenizationError{Status: "ERROR", Err: err}
	}
	if res == nil || res.Status != TokenStatusOK {
		status := "EMPTY"
		if res != nil {
			status = res.Status
		}
		return "", &TokenizationError{Status: status}
	}
	return res.Token, nil
}

// VerifyBuyer runs the SDK's buyer verification for a tokenized source.
func (c *Controller) VerifyBuyer(ctx context.Context, sourceID string, details VerificationDetails) (string, error) {
	c.mu.Lock()
	if c.state != StateAttached {
		c.mu.Unlock()
		return "", ErrNotReady
	}
	payments := c.payments
	c.mu.Unlock()

	res, err := payments.VerifyBuyer(ctx, sourceID, details)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", errors.New("verification returned no result")
	}
	return res.Token, nil
}

// Teardown releases the card surface and empties the container. It is idempotent and
// safe at any point of the lifecycle; a pending initialization is cancelled and its
// callbacks are dropped.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = StateDestroyed
	cancel, card, container := c.cancel, c.card, c.container
	c.cancel, c.card, c.payments, c.container = nil, nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	destroy(card, c.log)
	if container != nil {
		container.Clear()
	}
}

func destroy(card Card, log *slog.Logger) {
	d, ok := card.(Destroyer)
	if !ok {
		return
	}
	if err := d.Destroy(); err != nil {
		log.Warn("card destroy failed", slog.Any("error", err))
	}
}
