// Package views tracks mounted checkout views. Each view owns one card container, the
// widget controller attached to it and the checkout session submitting through it.
package views

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/M2labo/mm-lp-page/internal/bg"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/service"
	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long an idle view lives before it is torn down.
	DefaultTTL = 15 * time.Minute

	// DefaultCleanupInterval is how often expired views are swept.
	DefaultCleanupInterval = 30 * time.Second
)

var (
	ErrViewNotFound = errors.New("checkout view not found")
	ErrClosed       = errors.New("view registry is closed")
)

type View struct {
	ID         string
	Container  *widget.MemoryContainer
	Controller *widget.Controller
	Session    *service.CheckoutSession
	CreatedAt  time.Time

	lastSeen time.Time
}

// Snapshot is the externally visible state of a view.
type Snapshot struct {
	ID         string       `json:"id"`
	State      widget.State `json:"state"`
	Error      string       `json:"error,omitempty"`
	Children   []string     `json:"children"`
	Submitting bool         `json:"submitting"`
	Submitted  bool         `json:"submitted"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (v *View) Snapshot() Snapshot {
	s := Snapshot{
		ID:         v.ID,
		State:      v.Controller.State(),
		Children:   v.Container.Children(),
		Submitting: v.Session.Submitting(),
		Submitted:  v.Session.Submitted(),
		CreatedAt:  v.CreatedAt,
	}
	if err := v.Controller.Err(); err != nil {
		s.Error = err.Error()
	}
	return s
}

type Options struct {
	Widget   widget.Config
	Probe    widget.Probe
	Runner   bg.Runner
	Catalog  *d.Catalog
	Charges  service.ChargeSubmitter
	Recorder service.PurchaseRecorder
	Currency string

	TTL             time.Duration
	CleanupInterval time.Duration
	Logger          *slog.Logger
}

type Registry struct {
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	views  map[string]*View
	closed bool

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Runner == nil {
		opts.Runner = bg.Async{}
	}
	r := &Registry{
		opts:        opts,
		log:         opts.Logger,
		views:       make(map[string]*View),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireViews(time.Now())
		case <-r.stopCleanup:
			return
		}
	}
}

// expireViews tears down idle views. A view with a submission in flight is kept.
func (r *Registry) expireViews(now time.Time) int {
	var expired []*View
	r.mu.Lock()
	for id, v := range r.views {
		if now.Sub(v.lastSeen) > r.opts.TTL && !v.Session.Submitting() {
			expired = append(expired, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Controller.Teardown()
		r.log.Info("checkout view expired", slog.String("view_id", v.ID))
	}
	return len(expired)
}

// Mount creates a view and starts its widget initialization.
func (r *Registry) Mount() (*View, error) {
	id := uuid.NewString()
	log := r.log.With(slog.String("view_id", id))
	container := widget.NewMemoryContainer("card-container-" + id)

	controller := widget.NewController(r.opts.Widget, r.opts.Probe, r.opts.Runner, widget.Callbacks{
		OnReady: func() { log.Debug("card ready") },
		OnError: func(err error) { log.Error("card init failed", slog.Any("error", err)) },
	}, log)

	session := service.NewCheckoutSession(service.SessionOptions{
		ViewID:   id,
		Catalog:  r.opts.Catalog,
		Widget:   controller,
		Charges:  r.opts.Charges,
		Recorder: r.opts.Recorder,
		Currency: r.opts.Currency,
		Hooks: service.Hooks{
			OnSuccess: func(*d.ChargeResult) { log.Info("payment completed") },
			OnError:   func(err error) { log.Warn("payment failed", slog.Any("error", err)) },
		},
		Logger: log,
	})

	now := time.Now()
	v := &View{
		ID:         id,
		Container:  container,
		Controller: controller,
		Session:    session,
		CreatedAt:  now,
		lastSeen:   now,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.views[id] = v
	r.mu.Unlock()

	controller.Begin(container)
	return v, nil
}

// Get returns the view and marks it as in use.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	v.lastSeen = time.Now()
	return v, nil
}

// Unmount tears the view down and forgets it.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	v.Controller.Teardown()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close stops the cleanup loop and tears down every view.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	close(r.stopCleanup)
	r.wg.Wait()

	for _, v := range views {
		v.Controller.Teardown()
	}
	return nil
}
