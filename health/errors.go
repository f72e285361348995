package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrBreakerOpen indicates one or more circuit breakers are open.
	ErrBreakerOpen = errors.New("health: circuit breaker open")
)
