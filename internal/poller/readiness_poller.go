// Package poller waits for a redirect login to materialize in the session store.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/M2labo/mm-lp-page/internal/auth"
)

const (
	DefaultBudget   = 8000 * time.Millisecond
	DefaultInterval = 150 * time.Millisecond

	DefaultDestination  = "/mypage"
	FallbackDestination = "/"
)

var ErrTimeout = errors.New("session not ready before deadline")

type Identities interface {
	Current(ctx context.Context, sessionID string) (*auth.Identity, error)
}

// Outcome is where the browser goes once polling has settled. Err is nil on success,
// ErrTimeout when the budget ran out, the store error on a hard failure, or the context
// error when the caller went away (Destination is then empty).
type Outcome struct {
	Destination string
	Identity    *auth.Identity
	Attempts    int
	Err         error
}

func (o Outcome) Ready() bool {
	return o.Err == nil && o.Identity != nil
}

type ReadinessPoller struct {
	ids      Identities
	budget   time.Duration
	interval time.Duration
	log      *slog.Logger
}

func NewReadinessPoller(ids Identities, budget, interval time.Duration, log *slog.Logger) *ReadinessPoller {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ReadinessPoller{ids: ids, budget: budget, interval: interval, log: log}
}

// Await polls until the session has a valid identity token, the budget is spent, the
// store fails hard or ctx is cancelled.
func (p *ReadinessPoller) Await(ctx context.Context, sessionID, from string) Outcome {
	deadline := time.Now().Add(p.budget)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Attempts: attempt - 1, Err: err}
		}

		identity, err := p.ids.Current(ctx, sessionID)
		switch {
		case err == nil && identity != nil:
			return Outcome{Destination: Destination(from), Identity: identity, Attempts: attempt}
		case ctx.Err() != nil:
			return Outcome{Attempts: attempt, Err: ctx.Err()}
		case err != nil && !auth.IsUnauthenticated(err):
			p.log.Error("session readiness query failed", slog.Int("attempt", attempt), slog.Any("error", err))
			return Outcome{Destination: FallbackDestination, Attempts: attempt, Err: err}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.log.Warn("session not ready before deadline", slog.Int("attempts", attempt), slog.Duration("budget", p.budget))
			return Outcome{Destination: FallbackDestination, Attempts: attempt, Err: ErrTimeout}
		}
		timer.Reset(min(p.interval, remaining))
		select {
		case <-ctx.Done():
			return Outcome{Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// Destination returns from when it is a local path, else DefaultDestination.
func Destination(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return DefaultDestination
	}
	if strings.HasPrefix(from, "/auth/") {
		return DefaultDestination
	}
	return from
}
