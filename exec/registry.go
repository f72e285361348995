package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolexec/cache"
	"github.com/jonwraymond/toolexec/observe"
	"github.com/jonwraymond/toolexec/resilience"
	"github.com/jonwraymond/toolexec/tool"
)

// Registration binds a Tool to its execution policy. All fields other
// than Tool are optional; zero values take engine defaults. A
// registration is immutable once accepted.
type Registration struct {
	// Tool is the capability to execute. Required.
	Tool tool.Tool

	// CachePolicy controls result caching for this tool. The zero
	// policy disables caching.
	CachePolicy cache.Policy

	// Breaker configures the tool's circuit breaker. Zero values take
	// the breaker defaults (5 failures / 60s window / 30s cooldown).
	Breaker resilience.CircuitBreakerConfig

	// HardTimeout is the per-attempt deadline. Default: 10 seconds.
	HardTimeout time.Duration

	// SoftTimeout marks an attempt as slow without aborting it.
	// Default: half the hard timeout.
	SoftTimeout time.Duration

	// BackoffMin and BackoffMax override the retry backoff bounds for
	// this tool. The delay before the retry is drawn uniformly from
	// [BackoffMin, BackoffMax], both inclusive. Zero values take the
	// engine defaults (200ms to 500ms).
	BackoffMin time.Duration
	BackoffMax time.Duration

	// RateLimit optionally throttles this tool with a token bucket.
	// Nil means unlimited.
	RateLimit *resilience.RateLimiterConfig

	// Synchronous routes invocations through the engine's shared
	// bulkhead, for tools that do blocking work without honoring
	// context cancellation. Queueing counts against the hard deadline.
	Synchronous bool
}

// registration is the engine's bound form of a Registration.
type registration struct {
	tool        tool.Tool
	policy      cache.Policy
	breaker     *resilience.CircuitBreaker
	limiter     *resilience.RateLimiter
	backoff     *resilience.Retry
	hardTimeout time.Duration
	softTimeout time.Duration
	synchronous bool
}

// Register binds a tool to the engine. The name must be unique and
// valid; the registration cannot be changed or removed afterwards.
func (e *Engine) Register(reg Registration) error {
	if reg.Tool == nil {
		return ErrNilTool
	}

	name := reg.Tool.Name()
	if err := tool.ValidateName(name); err != nil {
		return fmt.Errorf("exec: register %q: %w", name, err)
	}

	if reg.HardTimeout <= 0 {
		reg.HardTimeout = 10 * time.Second
	}
	if reg.SoftTimeout <= 0 {
		reg.SoftTimeout = reg.HardTimeout / 2
	}

	breakerCfg := reg.Breaker
	breakerCfg.Clock = e.clock
	userHook := reg.Breaker.OnStateChange
	breakerCfg.OnStateChange = func(from, to resilience.State) {
		e.onBreakerChange(name, from, to)
		if userHook != nil {
			userHook(from, to)
		}
	}

	var limiter *resilience.RateLimiter
	if reg.RateLimit != nil {
		limiterCfg := *reg.RateLimit
		limiterCfg.Clock = e.clock
		limiter = resilience.NewRateLimiter(limiterCfg)
	}

	backoffMin := e.backoffMin
	backoffMax := e.backoffMax
	if reg.BackoffMin > 0 {
		backoffMin = reg.BackoffMin
	}
	if reg.BackoffMax > 0 {
		backoffMax = reg.BackoffMax
	}

	r := &registration{
		tool:    reg.Tool,
		policy:  reg.CachePolicy,
		breaker: resilience.NewCircuitBreaker(breakerCfg),
		limiter: limiter,
		backoff: resilience.NewRetry(resilience.RetryConfig{
			InitialDelay: backoffMin,
			MaxDelay:     backoffMax,
			Strategy:     resilience.BackoffUniform,
			Rand:         e.rand,
			Clock:        e.clock,
		}),
		hardTimeout: reg.HardTimeout,
		softTimeout: reg.SoftTimeout,
		synchronous: reg.Synchronous,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.regs[name]; exists {
		return fmt.Errorf("exec: register %q: %w", name, ErrDuplicateTool)
	}
	e.regs[name] = r
	return nil
}

// Tools returns the names of all registered tools.
func (e *Engine) Tools() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.regs))
	for name := range e.regs {
		names = append(names, name)
	}
	return names
}

// BreakerStates returns the current circuit state per registered tool.
// Health checkers and dashboards consume this snapshot.
func (e *Engine) BreakerStates() map[string]resilience.State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	states := make(map[string]resilience.State, len(e.regs))
	for name, r := range e.regs {
		states[name] = r.breaker.State()
	}
	return states
}

// ResetBreaker manually closes the named tool's breaker.
func (e *Engine) ResetBreaker(name string) error {
	e.mu.RLock()
	r, ok := e.regs[name]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("exec: reset breaker %q: %w", name, ErrToolNotFound)
	}
	r.breaker.Reset()
	return nil
}

func (e *Engine) lookup(name string) (*registration, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.regs[name]
	return r, ok
}

// onBreakerChange feeds breaker transitions into the metrics sink.
func (e *Engine) onBreakerChange(name string, from, to resilience.State) {
	ctx := context.Background()
	if to == resilience.StateOpen && from != resilience.StateOpen {
		e.metrics.RecordBreakerOpen(ctx, name)
	}
	e.metrics.RecordBreakerState(ctx, name, int64(to))
	e.logger.Warn(ctx, "circuit breaker state change",
		observe.Field{Key: "tool", Value: name},
		observe.Field{Key: "from", Value: from.String()},
		observe.Field{Key: "to", Value: to.String()},
	)
}
