package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies model gateway failures.
type ErrorKind int

const (
	// KindUnavailable covers connection failures and 5xx responses.
	KindUnavailable ErrorKind = iota
	// KindRateLimited covers 429 responses and provider quota errors.
	KindRateLimited
	// KindTimeout covers deadline and cancellation failures.
	KindTimeout
	// KindAuth covers 401 and 403 responses. Not retryable.
	KindAuth
	// KindInvalidResponse covers malformed or empty provider replies.
	KindInvalidResponse
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ModelError is a classified model gateway failure.
type ModelError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("model gateway: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *ModelError) Retryable() bool {
	switch e.Kind {
	case KindUnavailable, KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}

// newModelError wraps err with a classification.
func newModelError(kind ErrorKind, err error) *ModelError {
	return &ModelError{Kind: kind, Err: err}
}

// ErrorKindOf extracts the classification from err, defaulting to
// KindUnavailable for unclassified errors.
func ErrorKindOf(err error) ErrorKind {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnavailable
}

// IsRetryable reports whether err is a transient gateway failure.
func IsRetryable(err error) bool {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Retryable()
	}
	return false
}
