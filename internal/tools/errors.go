package tools

import (
	"errors"
	"fmt"
)

// ErrorKind classifies tool invocation failures.
type ErrorKind int

const (
	// KindNotFound means no tool with the requested name is registered.
	KindNotFound ErrorKind = iota
	// KindInvalidArguments means the arguments failed schema validation.
	KindInvalidArguments
	// KindUpstreamUnavailable means the tool's backing system is down.
	KindUpstreamUnavailable
	// KindUpstreamError means the tool's backing system returned a failure.
	KindUpstreamError
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArguments:
		return "invalid_arguments"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// ToolError is a classified tool invocation failure.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// newToolError wraps err with a classification.
func newToolError(kind ErrorKind, tool string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Err: err}
}

// ErrorKindOf extracts the classification from err, defaulting to
// KindUpstreamError for unclassified errors.
func ErrorKindOf(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUpstreamError
}
