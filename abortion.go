package duex

import "sync"

// Abortion is the session's single-shot cancellation token. Any party may
// fire it; firing is idempotent and the first reason wins (§5). Observers
// are registered at session construction, not per-dispatcher.
type Abortion struct {
	mu        sync.Mutex
	done      chan struct{}
	reason    error
	observers []func(error)
}

func newAbortion() *Abortion {
	return &Abortion{done: make(chan struct{})}
}

// Observe registers a callback invoked (at most once) when the token
// fires, with the first reason. Safe to call even after the token has
// already fired — the callback runs immediately in that case.
func (a *Abortion) Observe(fn func(reason error)) {
	a.mu.Lock()
	if a.reason != nil || isClosed(a.done) {
		reason := a.reason
		a.mu.Unlock()
		fn(reason)
		return
	}
	a.observers = append(a.observers, fn)
	a.mu.Unlock()
}

// Abort fires the token with reason. Calling it again preserves the first
// reason (§8 round-trip property).
func (a *Abortion) Abort(reason error) {
	a.mu.Lock()
	if isClosed(a.done) {
		a.mu.Unlock()
		return
	}
	a.reason = reason
	observers := a.observers
	a.observers = nil
	close(a.done)
	a.mu.Unlock()
	for _, fn := range observers {
		fn(reason)
	}
}

func (a *Abortion) fired() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// reasonErr returns the fired reason as an error the chain engine can
// propagate as the rejection path.
func (a *Abortion) reasonErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason
}

// Done exposes the fired channel for select statements.
func (a *Abortion) Done() <-chan struct{} { return a.done }

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
