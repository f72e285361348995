package resilience

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the hard deadline for the operation.
	// Default: 10 seconds
	Timeout time.Duration

	// Clock supplies time. Default: the real wall clock.
	Clock clockwork.Clock
}

// Timeout enforces a hard deadline on operations. An operation still
// running when the deadline fires is abandoned: its context is cancelled
// and any result it later produces is discarded.
type Timeout struct {
	config TimeoutConfig
	clock  clockwork.Clock
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Timeout{config: config, clock: config.Clock}
}

// Execute runs the operation under the hard deadline.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(opCtx)
	}()

	timer := t.clock.NewTimer(t.config.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.Chan():
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout is a convenience function to run an operation with
// a hard deadline.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
