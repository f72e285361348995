package exec

import "errors"

// Sentinel errors for the execution engine.
var (
	// ErrToolNotFound is returned in a Result when the named tool has
	// no registration.
	ErrToolNotFound = errors.New("exec: tool not registered")

	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("exec: tool already registered")

	// ErrNilTool is returned by Register when the registration carries
	// no tool.
	ErrNilTool = errors.New("exec: registration has nil tool")

	// ErrCancelled is the underlying error for cancelled results.
	ErrCancelled = errors.New("exec: call cancelled")
)
