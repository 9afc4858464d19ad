// Package bg decides how background work is started, so production code can spawn
// goroutines while tests run the same paths inline.
package bg

import "sync"

// Runner executes fn, either in the caller's goroutine or in a new one.
type Runner interface {
	Do(fn func())
}

// Async runs every function in its own goroutine.
type Async struct{}

func (Async) Do(fn func()) {
	go fn()
}

// Sync runs the function before Do returns.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}

// Tracked runs functions in goroutines and lets shutdown wait for them.
type Tracked struct {
	wg sync.WaitGroup
}

func (t *Tracked) Do(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until every function started through Do has returned.
func (t *Tracked) Wait() {
	t.wg.Wait()
}
