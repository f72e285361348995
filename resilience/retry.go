package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// BackoffStrategy defines how delays are computed between retries.
type BackoffStrategy int

const (
	// BackoffExponential doubles the delay each attempt with jitter.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
	// BackoffUniform draws each delay uniformly from
	// [InitialDelay, MaxDelay], both bounds inclusive.
	BackoffUniform
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 2 (a single retry)
	MaxAttempts int

	// InitialDelay is the delay before the first retry. For the uniform
	// strategy it is the lower bound of the draw.
	// Default: 200ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries. For the uniform strategy
	// it is the upper bound of the draw.
	// Default: 500ms
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffUniform
	Strategy BackoffStrategy

	// Jitter adds randomness to non-uniform delays to prevent
	// synchronized retry storms.
	// Default: false
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Rand overrides the random source used for jitter draws.
	// Default: math/rand/v2.
	Rand func(n int64) int64

	// Clock supplies time for the backoff sleep. Default: real clock.
	Clock clockwork.Clock
}

// Retry implements bounded retry with backoff.
type Retry struct {
	config RetryConfig
	clock  clockwork.Clock
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 200 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 500 * time.Millisecond
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	if config.Rand == nil {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		config.Rand = rand.Int64N
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Retry{config: config, clock: config.Clock}
}

// Execute runs the operation with retry logic. The backoff sleep is
// interruptible by context cancellation.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)

		if err == nil {
			return nil
		}

		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.Delay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
			// Continue to next attempt
		}
	}

	return lastErr
}

// Delay returns the backoff delay to apply after the given attempt
// (1-based). Uniform draws are inclusive of both bounds.
func (r *Retry) Delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)

	case BackoffUniform:
		span := int64(r.config.MaxDelay - r.config.InitialDelay)
		if span <= 0 {
			return r.config.InitialDelay
		}
		return r.config.InitialDelay + time.Duration(r.config.Rand(span+1))
	}

	// Cap at max delay
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	// Add jitter if enabled
	if r.config.Jitter && delay > 0 {
		// Add up to 25% jitter
		jitter := time.Duration(r.config.Rand(int64(delay / 4)))
		delay = delay + jitter
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
