package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolexec/cache"
	"github.com/jonwraymond/toolexec/observe"
	"github.com/jonwraymond/toolexec/resilience"
)

// Error kinds reported to the metrics sink.
const (
	kindToolError     = "tool_error"
	kindTimeout       = "timeout"
	kindCancelled     = "cancelled"
	kindCircuitOpen   = "circuit_open"
	kindRateLimited   = "rate_limited"
	kindNotRegistered = "not_registered"
	kindBulkheadFull  = "bulkhead_full"
)

// Engine executes registered tools through the resilience pipeline.
//
// Pipeline order per call: token check, cache lookup, rate limiter,
// circuit breaker, then up to two attempts under per-attempt hard
// deadlines with one uniformly jittered backoff in between. Only the
// final outcome is recorded with the breaker; only successes are
// cached.
type Engine struct {
	mu   sync.RWMutex
	regs map[string]*registration

	cache    cache.Cache
	keyer    cache.Keyer
	metrics  observe.Metrics
	tracer   observe.Tracer
	logger   observe.Logger
	clock    clockwork.Clock
	bulkhead *resilience.Bulkhead
	flight   *singleflight.Group

	backoffMin   time.Duration
	backoffMax   time.Duration
	bulkheadSize int
	rand         func(int64) int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache sets the result cache. Default: in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithKeyer sets the cache key generator. Default: canonical-JSON
// SHA-256 keyer.
func WithKeyer(k cache.Keyer) Option {
	return func(e *Engine) { e.keyer = k }
}

// WithMetrics sets the metrics sink. Default: noop.
func WithMetrics(m observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer. Default: noop.
func WithTracer(t observe.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger sets the structured logger. Default: noop.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for deadlines, backoff, breaker
// windows, and cache expiry. Default: the real wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithBulkhead sets the shared concurrency limit for synchronous
// tools. Default: 10 concurrent invocations.
func WithBulkhead(maxConcurrent int) Option {
	return func(e *Engine) { e.bulkheadSize = maxConcurrent }
}

// WithBackoff overrides the engine-default retry backoff bounds. Each
// delay is drawn uniformly from [min, max], both inclusive. A
// Registration may narrow or widen its own range via BackoffMin and
// BackoffMax. Default: 200ms to 500ms.
func WithBackoff(min, max time.Duration) Option {
	return func(e *Engine) {
		e.backoffMin = min
		e.backoffMax = max
	}
}

// WithRand overrides the random source for backoff draws.
func WithRand(fn func(int64) int64) Option {
	return func(e *Engine) { e.rand = fn }
}

// WithSingleFlight dedupes concurrent identical calls: callers sharing
// a cache key join one in-flight execution and receive its Result.
// Only tools with caching enabled participate.
func WithSingleFlight() Option {
	return func(e *Engine) { e.flight = &singleflight.Group{} }
}

// NewEngine creates an execution engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		regs:       make(map[string]*registration),
		clock:      clockwork.NewRealClock(),
		backoffMin: 200 * time.Millisecond,
		backoffMax: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = cache.NewMemoryCache(e.clock)
	}
	if e.keyer == nil {
		e.keyer = cache.NewDefaultKeyer()
	}
	if e.metrics == nil {
		e.metrics = observe.NewNoopMetrics()
	}
	if e.tracer == nil {
		e.tracer = observe.NewNoopTracer()
	}
	if e.logger == nil {
		e.logger = observe.NewNoopLogger()
	}
	e.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: e.bulkheadSize,
		WaitForSlot:   true,
		Clock:         e.clock,
	})

	return e
}

// Execute runs the named tool through the full pipeline and returns a
// typed Result. It never panics and never returns a bare error.
func (e *Engine) Execute(ctx context.Context, call Call) Result {
	token := call.Token
	if token == nil {
		token = NewToken()
	}

	if token.Cancelled() || ctx.Err() != nil {
		e.metrics.RecordError(ctx, call.Tool, kindCancelled)
		return Result{Status: StatusCancelled, Err: ErrCancelled}
	}

	reg, ok := e.lookup(call.Tool)
	if !ok {
		e.metrics.RecordError(ctx, call.Tool, kindNotRegistered)
		return Result{
			Status: StatusError,
			Err:    fmt.Errorf("%w: %q", ErrToolNotFound, call.Tool),
		}
	}

	key := e.deriveKey(ctx, reg, call)

	if e.flight != nil && key != "" {
		ch := e.flight.DoChan(key, func() (any, error) {
			return e.execute(ctx, reg, call, token, key), nil
		})
		// A joiner keeps its own cancellation: abandoning the wait
		// leaves the leader's execution running for the others.
		select {
		case res := <-ch:
			return res.Val.(Result)
		case <-token.Done():
			e.metrics.RecordError(ctx, call.Tool, kindCancelled)
			return Result{Status: StatusCancelled, Err: ErrCancelled}
		case <-ctx.Done():
			e.metrics.RecordError(ctx, call.Tool, kindCancelled)
			return Result{Status: StatusCancelled, Err: fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())}
		}
	}

	return e.execute(ctx, reg, call, token, key)
}

// execute runs the pipeline after registry lookup and key derivation.
func (e *Engine) execute(ctx context.Context, reg *registration, call Call, token *Token, key string) Result {
	start := e.clock.Now()

	ctx, span := e.tracer.StartSpan(ctx, observe.ToolMeta{Name: call.Tool})
	log := e.logger.WithTool(observe.ToolMeta{Name: call.Tool})

	res := e.run(ctx, reg, call, token, key, start, log)

	span.SetAttributes(
		attribute.String("tool.status", string(res.Status)),
		attribute.Int("tool.attempts", res.Attempts),
		attribute.Bool("tool.from_cache", res.FromCache),
	)
	e.tracer.EndSpan(span, res.Err)

	e.metrics.RecordCall(ctx, call.Tool, string(res.Status), res.Elapsed, res.Attempts)
	return res
}

func (e *Engine) run(ctx context.Context, reg *registration, call Call, token *Token, key string, start time.Time, log observe.Logger) Result {
	// Cache hits bypass the breaker: serving stored data needs no
	// protection from a failing backend.
	if key != "" {
		if payload, ok := e.cache.Get(ctx, key); ok {
			e.metrics.RecordCacheHit(ctx, call.Tool)
			log.Debug(ctx, "cache hit", observe.Field{Key: "key", Value: key})
			return Result{
				Status:    StatusSuccess,
				Payload:   payload,
				Elapsed:   e.clock.Since(start),
				FromCache: true,
			}
		}
	}

	// Re-check before the limiter and breaker reserve anything.
	if token.Cancelled() || ctx.Err() != nil {
		e.metrics.RecordError(ctx, call.Tool, kindCancelled)
		return Result{
			Status:  StatusCancelled,
			Err:     ErrCancelled,
			Elapsed: e.clock.Since(start),
		}
	}

	if reg.limiter != nil && !reg.limiter.Allow() {
		e.metrics.RecordError(ctx, call.Tool, kindRateLimited)
		log.Warn(ctx, "rate limit exceeded")
		return Result{
			Status:  StatusError,
			Err:     resilience.ErrRateLimitExceeded,
			Elapsed: e.clock.Since(start),
		}
	}

	if err := reg.breaker.Allow(); err != nil {
		retryAfter := reg.breaker.RetryAfter()
		e.metrics.RecordError(ctx, call.Tool, kindCircuitOpen)
		log.Warn(ctx, "circuit breaker refused call",
			observe.Field{Key: "retry_after", Value: retryAfter.String()})
		return Result{
			Status:     StatusCircuitOpen,
			Err:        err,
			Elapsed:    e.clock.Since(start),
			RetryAfter: retryAfter,
		}
	}

	payload, attempts, err := e.attempts(ctx, reg, call, token, log)

	if isCancellation(err) {
		// The breaker slot was granted but the outcome is unknown;
		// release a half-open probe without recording.
		reg.breaker.Abandon()
		e.metrics.RecordError(ctx, call.Tool, kindCancelled)
		return Result{
			Status:   StatusCancelled,
			Err:      ErrCancelled,
			Elapsed:  e.clock.Since(start),
			Attempts: attempts,
		}
	}

	reg.breaker.Record(err)

	if err != nil {
		status := StatusError
		kind := kindToolError
		switch {
		case errors.Is(err, resilience.ErrTimeout):
			status = StatusTimeout
			kind = kindTimeout
		case errors.Is(err, resilience.ErrBulkheadFull):
			kind = kindBulkheadFull
		}
		e.metrics.RecordError(ctx, call.Tool, kind)
		log.Error(ctx, "execution failed",
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "attempts", Value: attempts},
		)
		return Result{
			Status:   status,
			Err:      err,
			Elapsed:  e.clock.Since(start),
			Attempts: attempts,
		}
	}

	if key != "" && reg.policy.Enabled() {
		if cerr := e.cache.Set(ctx, key, payload, reg.policy.TTL); cerr != nil {
			log.Warn(ctx, "cache store failed",
				observe.Field{Key: "error", Value: cerr.Error()})
		}
	}

	return Result{
		Status:   StatusSuccess,
		Payload:  payload,
		Elapsed:  e.clock.Since(start),
		Attempts: attempts,
	}
}

// attempts performs the initial invocation and at most one retry with
// a jittered backoff in between. Cancellation suppresses the retry.
func (e *Engine) attempts(ctx context.Context, reg *registration, call Call, token *Token, log observe.Logger) ([]byte, int, error) {
	var payload []byte
	var err error
	attempts := 0

	for i := 0; i < 2; i++ {
		if token.Cancelled() || ctx.Err() != nil {
			return nil, attempts, ErrCancelled
		}

		attempts++
		payload, err = e.attempt(ctx, reg, call.Input, token, log)
		if err == nil {
			return payload, attempts, nil
		}
		if isCancellation(err) {
			return nil, attempts, err
		}
		if i == 1 {
			break
		}

		delay := reg.backoff.Delay(1)
		e.metrics.RecordRetry(ctx, call.Tool)
		log.Info(ctx, "retrying after backoff",
			observe.Field{Key: "delay", Value: delay.String()},
			observe.Field{Key: "error", Value: err.Error()},
		)

		timer := e.clock.NewTimer(delay)
		select {
		case <-timer.Chan():
		case <-token.Done():
			timer.Stop()
			return nil, attempts, ErrCancelled
		case <-ctx.Done():
			timer.Stop()
			return nil, attempts, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}

	return nil, attempts, err
}

// attempt runs one invocation under the registration's hard deadline.
// The soft timeout only flags the call as slow. An invocation still
// running at the hard deadline is abandoned: its context is cancelled
// and a late payload is discarded.
func (e *Engine) attempt(ctx context.Context, reg *registration, input map[string]any, token *Token, log observe.Logger) ([]byte, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		payload []byte
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		if reg.synchronous {
			if err := e.bulkhead.Acquire(opCtx); err != nil {
				done <- outcome{err: err}
				return
			}
			defer e.bulkhead.Release()
		}
		p, err := reg.tool.Invoke(opCtx, input)
		done <- outcome{payload: p, err: err}
	}()

	hard := e.clock.NewTimer(reg.hardTimeout)
	defer hard.Stop()
	soft := e.clock.NewTimer(reg.softTimeout)
	defer soft.Stop()

	for {
		select {
		case out := <-done:
			return out.payload, out.err
		case <-soft.Chan():
			log.Warn(ctx, "slow tool call",
				observe.Field{Key: "threshold", Value: reg.softTimeout.String()})
			trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("tool.slow", true))
		case <-hard.Chan():
			return nil, resilience.ErrTimeout
		case <-token.Done():
			return nil, ErrCancelled
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}
}

// deriveKey returns the cache key for the call, or "" when the tool
// does not cache or the input cannot be canonicalized. An
// uncacheable input disables caching and dedup for the call only.
func (e *Engine) deriveKey(ctx context.Context, reg *registration, call Call) string {
	if !reg.policy.Enabled() {
		return ""
	}
	key, err := e.keyer.Key(call.Tool, call.Input)
	if err != nil {
		e.logger.Warn(ctx, "cache key derivation failed, call will not be cached",
			observe.Field{Key: "tool", Value: call.Tool},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return ""
	}
	return key
}

// isCancellation reports whether err terminates the call without a
// recordable outcome. Only engine-level cancellation counts; a tool
// returning a bare context error is an ordinary, retryable failure.
func isCancellation(err error) bool {
	return errors.Is(err, ErrCancelled)
}
