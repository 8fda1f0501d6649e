package snapshot

import (
	"context"
	"sync"
)

// Tracker orders the selections of one session. Each Begin supersedes the
// previous selection and cancels its fetch; a superseded result is never delivered.
type Tracker struct {
	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

// Begin starts a new selection and returns its context and ticket.
func (t *Tracker) Begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.current++
	t.cancel = cancel
	return ctx, t.current
}

// Deliver runs fn only if ticket is still the newest selection. No newer Begin
// can complete while fn runs.
func (t *Tracker) Deliver(ticket uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticket != t.current {
		return false
	}
	fn()
	return true
}

func (t *Tracker) Current(ticket uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ticket == t.current
}

// Stop cancels whatever selection is in flight.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.current++
}
