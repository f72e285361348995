package exec

import "time"

// Status is the terminal classification of an execution.
type Status string

const (
	// StatusSuccess means the tool returned a payload.
	StatusSuccess Status = "success"
	// StatusError means the tool (or the pipeline around it) failed.
	StatusError Status = "error"
	// StatusTimeout means the hard deadline elapsed on the final attempt.
	StatusTimeout Status = "timeout"
	// StatusCancelled means the token or context was cancelled.
	StatusCancelled Status = "cancelled"
	// StatusCircuitOpen means the breaker refused the call without
	// invoking the tool.
	StatusCircuitOpen Status = "circuit_open"
)

// Call describes a single tool invocation request.
type Call struct {
	// Tool is the registered tool name.
	Tool string

	// Input is the tool invocation payload. Nested maps and slices are
	// supported; the engine treats it as opaque beyond key derivation.
	Input map[string]any

	// Token optionally carries cooperative cancellation. Nil means the
	// call is only cancellable through the context.
	Token *Token
}

// Result is the typed outcome of an execution. Execute returns one for
// every call; it never returns a bare Go error.
type Result struct {
	// Status is the terminal classification.
	Status Status

	// Payload is the tool output. Non-nil only on success.
	Payload []byte

	// Err is the underlying failure. Nil on success.
	Err error

	// Elapsed is wall time from accepting the call to returning,
	// including backoff between attempts. Zero for pre-call refusals.
	Elapsed time.Duration

	// FromCache is true when Payload was served from the result cache.
	FromCache bool

	// Attempts is the number of tool invocations actually performed:
	// 0 for cache hits and refusals, 1 or 2 otherwise.
	Attempts int

	// RetryAfter is how long the caller should wait before trying again.
	// Set only for circuit_open refusals.
	RetryAfter time.Duration
}

// OK reports whether the call produced a usable payload.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}
