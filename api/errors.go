package handler

import "fmt"

// ValidationError rejects a request before (or instead of) any outbound
// call: bad owner id, no matching labels, unusable payload. Maps to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a caller-facing message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError means a Pipedrive call failed or returned non-success.
// Message is safe for the caller; Status and Body are diagnostics only and
// must stay in logs and the admin notification. Maps to 400.
type UpstreamError struct {
	Message string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
