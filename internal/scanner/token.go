package scanner

import (
	"sync"
)

type tokenState int

const (
	tokenActive tokenState = iota
	tokenPaused
	tokenCancelled
)

// CancelToken is the per-run cooperative pause/cancel signal. The worker
// checks it between units of work only: pause blocks the caller on a
// condition wait until resumed or cancelled, never busy-waiting, and
// cancellation is honored at the next checkpoint.
type CancelToken struct {
	mu     sync.Mutex
	cond   *sync.Cond
	state  tokenState
	reason string
}

// NewCancelToken creates a token in the active state.
func NewCancelToken() *CancelToken {
	t := &CancelToken{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Pause moves the token from active to paused. Returns false when the
// token is not active.
func (t *CancelToken) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tokenActive {
		return false
	}
	t.state = tokenPaused
	return true
}

// Resume moves the token from paused back to active and wakes the
// blocked worker. Returns false when the token is not paused.
func (t *CancelToken) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tokenPaused {
		return false
	}
	t.state = tokenActive
	t.cond.Broadcast()
	return true
}

// Cancel moves the token to cancelled from any non-cancelled state and
// wakes a paused worker so the cancellation can take effect.
func (t *CancelToken) Cancel(reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == tokenCancelled {
		return false
	}
	t.state = tokenCancelled
	t.reason = reason
	t.cond.Broadcast()
	return true
}

// Cancelled reports whether the token has been cancelled.
func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == tokenCancelled
}

// Paused reports whether the token is currently paused.
func (t *CancelToken) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == tokenPaused
}

// Reason returns the reason recorded by Cancel.
func (t *CancelToken) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Checkpoint is the per-iteration yield point. It blocks while the token
// is paused and reports whether the run has been cancelled. The caller
// resumes exactly where it left off after a pause, with no work repeated.
func (t *CancelToken) Checkpoint() (cancelled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state == tokenPaused {
		t.cond.Wait()
	}
	return t.state == tokenCancelled
}
