package health

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/toolexec/resilience"
)

// StateSource exposes per-tool circuit breaker states. The execution
// engine implements it.
type StateSource interface {
	BreakerStates() map[string]resilience.State
}

// BreakerChecker reports health from circuit breaker states:
// all closed is healthy, any half-open is degraded, any open is
// unhealthy.
type BreakerChecker struct {
	source StateSource
}

// NewBreakerChecker creates a checker over the given state source.
func NewBreakerChecker(source StateSource) *BreakerChecker {
	return &BreakerChecker{source: source}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return "breakers"
}

// Check inspects every breaker and aggregates to the worst state.
func (c *BreakerChecker) Check(_ context.Context) Result {
	states := c.source.BreakerStates()

	details := make(map[string]any, len(states))
	var open, halfOpen []string
	for tool, state := range states {
		details[tool] = state.String()
		switch state {
		case resilience.StateOpen:
			open = append(open, tool)
		case resilience.StateHalfOpen:
			halfOpen = append(halfOpen, tool)
		}
	}
	sort.Strings(open)
	sort.Strings(halfOpen)

	switch {
	case len(open) > 0:
		msg := fmt.Sprintf("open breakers: %s", strings.Join(open, ", "))
		return Unhealthy(msg, ErrBreakerOpen).WithDetails(details)
	case len(halfOpen) > 0:
		msg := fmt.Sprintf("recovering breakers: %s", strings.Join(halfOpen, ", "))
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy("all breakers closed").WithDetails(details)
	}
}

// Ensure BreakerChecker implements Checker
var _ Checker = (*BreakerChecker)(nil)
