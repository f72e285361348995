package exec

import "sync"

// Token is a cooperative cancellation handle shared between a caller
// and the engine for the duration of one logical call, including any
// retry attempt.
//
// Contract:
// - Cancel is one-way and idempotent; there is no un-cancel.
// - Concurrency: all methods are safe for concurrent use.
// - Cancellation does not preempt a running tool. The engine stops
//   waiting, never retries, and discards any payload produced after
//   the cancel.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken creates a new, un-cancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel requests cancellation. Subsequent calls are no-ops.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation, for select-based waits.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
