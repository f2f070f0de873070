package extract

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrTemplateNotLoaded indicates a user prompt was built before the
	// extractor's prompt template was loaded. This is a programming
	// invariant violation, not a recoverable condition.
	ErrTemplateNotLoaded = errors.New("prompt template not loaded")

	// ErrNoToolInvocation indicates the model returned neither a tool
	// invocation nor a parseable payload on the tool path.
	ErrNoToolInvocation = errors.New("no tool invocation returned")

	// ErrInvalidResult indicates the model response failed validation
	// against the declared result schema.
	ErrInvalidResult = errors.New("result validation failed")

	// ErrUnknownLayer indicates an unrecognized memory layer name.
	ErrUnknownLayer = errors.New("unknown memory layer")
)

// Error wraps failures with the extractor operation that produced them.
//
// The format is: "persomem: <Op>: <Err>"
type Error struct {
	// Op names the operation that failed (e.g. "memory.activity.structured_call").
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	return fmt.Sprintf("persomem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with operation context, returning nil for nil errors.
func newError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
