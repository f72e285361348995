package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls are permitted.
	StateClosed State = iota
	// StateOpen means calls are refused without invoking the tool.
	StateOpen
	// StateHalfOpen means a single probe is permitted through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of failures within Window before opening.
	// Default: 5
	MaxFailures int

	// Window is the rolling interval within which failures are counted.
	// A failure arriving after the window has elapsed restarts the count.
	// Default: 60 seconds
	Window time.Duration

	// Cooldown is how long the breaker stays open before permitting a
	// half-open probe.
	// Default: 30 seconds
	Cooldown time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock supplies time. Default: the real wall clock.
	Clock clockwork.Clock
}

// CircuitBreaker tracks failures for a single tool and gates whether a
// call attempt is permitted.
//
// Two usage styles are supported: Execute wraps an operation end to end,
// while the split-phase Allow/Record pair lets a caller that runs its own
// retry loop record only the final outcome. Every Allow that returns nil
// must be balanced by exactly one Record or Abandon.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	clock  clockwork.Clock

	mu          sync.Mutex
	state       State
	failures    int
	windowStart time.Time
	openedAt    time.Time
	probes      int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &CircuitBreaker{
		config: config,
		clock:  config.Clock,
		state:  StateClosed,
	}
}

// Allow reports whether a call attempt is permitted. It returns
// ErrCircuitOpen when the breaker is open, or when a half-open probe is
// already outstanding. A nil return in half-open state reserves the probe
// slot; the caller must follow up with Record or Abandon.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= 1 {
			return ErrCircuitOpen
		}
		cb.probes++
	}

	return nil
}

// Record registers the final outcome of a permitted call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if isFailure {
			now := cb.clock.Now()
			if cb.failures == 0 || now.Sub(cb.windowStart) >= cb.config.Window {
				// Start a fresh window
				cb.windowStart = now
				cb.failures = 0
			}
			cb.failures++
			if cb.failures >= cb.config.MaxFailures {
				cb.openedAt = now
				cb.state = StateOpen
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if cb.probes > 0 {
			cb.probes--
		}
		if isFailure {
			// Failed probe restarts the cooldown
			cb.openedAt = cb.clock.Now()
			cb.state = StateOpen
		} else {
			cb.state = StateClosed
			cb.failures = 0
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// Abandon releases a reserved half-open probe slot without recording an
// outcome. Used when a permitted call is cancelled before completing.
func (cb *CircuitBreaker) Abandon() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.probes > 0 {
		cb.probes--
	}
}

// RetryAfter returns how long a refused caller should wait before the
// breaker may permit a probe. Zero when the breaker is not open.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	remaining := cb.config.Cooldown - cb.clock.Now().Sub(cb.openedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	cb.Record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

// currentStateLocked applies the lazy open -> half-open transition once
// the cooldown has elapsed. Transitions happen on the next call attempt,
// not on a timer.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.clock.Now().Sub(cb.openedAt) >= cb.config.Cooldown {
		cb.state = StateHalfOpen
		cb.probes = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

// Snapshot returns current circuit breaker statistics.
func (cb *CircuitBreaker) Snapshot() CircuitBreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerSnapshot{
		State:    cb.currentStateLocked(),
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}

// CircuitBreakerSnapshot contains circuit breaker statistics.
type CircuitBreakerSnapshot struct {
	State    State
	Failures int
	OpenedAt time.Time
}
