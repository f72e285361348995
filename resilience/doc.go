// Package resilience provides failure-bounding patterns for tool execution.
//
// The execution engine composes these primitives; each is also usable on
// its own:
//
//   - Circuit Breaker: stops calling a failing tool for a cooldown period,
//     permitting a single half-open probe once the cooldown elapses.
//
//   - Retry: bounded retries with jittered backoff. The engine uses the
//     uniform strategy for its single inter-attempt delay.
//
//   - Timeout: hard deadline on an operation; late results are discarded.
//
//   - Bulkhead: bounds concurrent synchronous invocations; waiters queue
//     until a slot frees or their context is cancelled.
//
//   - Rate Limiter: token bucket limiting per-tool call rates.
//
// All time-dependent behavior reads an injected clock so tests can advance
// time deterministically.
package resilience
