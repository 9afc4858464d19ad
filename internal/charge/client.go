// Package charge posts charge requests to the payment backend.
package charge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultPath    = "/api/square/payment"
	defaultMessage = "Payment failed"
	maxBodyBytes   = 1 << 20
)

// ErrTransport covers every failure to get a usable answer from the endpoint.
var ErrTransport = errors.New("charge endpoint unreachable")

// RejectedError is a non-2xx answer from the charge endpoint.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("charge rejected (%d): %s", e.StatusCode, e.Message)
}

// callerGone is a failure caused by the buyer's own context ending, not by the endpoint.
type callerGone struct {
	err error
}

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

type Options struct {
	BaseURL string
	// Path defaults to DefaultPath.
	Path      string
	Timeout   time.Duration
	Transport http.RoundTripper
	Breaker   circuitbreaker.Settings
	Logger    *slog.Logger
}

type Client struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*d.ChargeResult]
}

func NewClient(opts Options) *Client {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	settings := opts.Breaker
	if settings.Name == "" {
		settings = circuitbreaker.DefaultSettings("charge-endpoint")
	}
	// a declined card says nothing about the endpoint's health
	settings.IsSuccessful = func(err error) bool {
		var rejected *RejectedError
		return err == nil || errors.As(err, &rejected)
	}
	settings.IsExcluded = func(err error) bool {
		var gone *callerGone
		return errors.As(err, &gone)
	}
	if settings.Logger == nil {
		settings.Logger = opts.Logger
	}

	return &Client{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		},
		breaker: circuitbreaker.New[*d.ChargeResult](settings),
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends one charge request. Errors are either *RejectedError or wrap ErrTransport.
// Requests abandoned through ctx do not count against the shared breaker.
func (c *Client) Submit(ctx context.Context, req d.ChargeRequest) (*d.ChargeResult, error) {
	res, err := c.breaker.Execute(func() (*d.ChargeResult, error) {
		res, err := c.post(ctx, req)
		if err != nil && ctx.Err() != nil {
			return nil, &callerGone{err: err}
		}
		return res, err
	})
	var gone *callerGone
	switch {
	case errors.As(err, &gone):
		return nil, gone.err
	case err != nil && circuitbreaker.IsRejected(err):
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return res, err
}

func (c *Client) post(ctx context.Context, req d.ChargeRequest) (*d.ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: rejectionMessage(payload)}
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: malformed response", ErrTransport)
	}
	return &d.ChargeResult{Payload: json.RawMessage(payload)}, nil
}

func rejectionMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || strings.TrimSpace(body.Message) == "" {
		return defaultMessage
	}
	return body.Message
}
