package tool

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidName is returned when a tool name is empty or malformed.
var ErrInvalidName = errors.New("tool: invalid tool name")

// Tool is the capability contract consumed by the execution engine.
//
// Contract:
// - Name must be stable for the lifetime of the process; it scopes cache
//   keys and circuit breaker state.
// - Invoke must honor ctx cancellation and deadlines. The engine may
//   abandon an invocation whose deadline has passed; a payload produced
//   after abandonment is discarded.
// - Concurrency: Invoke may be called concurrently.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string

	// Invoke executes the tool with the given input and returns the
	// serialized payload, or an error if the tool failed.
	Invoke(ctx context.Context, input map[string]any) ([]byte, error)
}

// InvokeFunc is the function signature wrapped by Func.
type InvokeFunc func(ctx context.Context, input map[string]any) ([]byte, error)

// Func adapts an ordinary function into a Tool.
type Func struct {
	name string
	fn   InvokeFunc
}

// NewFunc creates a Tool backed by fn.
func NewFunc(name string, fn InvokeFunc) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the tool identifier.
func (f *Func) Name() string {
	return f.name
}

// Invoke calls the wrapped function.
func (f *Func) Invoke(ctx context.Context, input map[string]any) ([]byte, error) {
	return f.fn(ctx, input)
}

// ValidateName checks that a tool name is usable as a registry key.
func ValidateName(name string) error {
	if name == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return ErrInvalidName
	}
	return nil
}

// Ensure Func implements Tool
var _ Tool = (*Func)(nil)
