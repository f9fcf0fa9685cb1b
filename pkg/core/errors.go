package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: invalid_repeat, missing_required, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches predefined errors by code so copies made with WithX still match
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	ErrInvalidRepeat = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_repeat",
		Message:  "repeat count must be at least 1",
	}
	ErrEmptyScript = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "empty_script",
		Message:  "no executable script",
	}
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
)

// NetworkError means the call never produced an HTTP response
// (connection refused, DNS failure, reset, cancelled context).
type NetworkError struct {
	Op  string // Client operation, e.g. "POST /input/click"
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Category returns ErrCategoryNetwork
func (e *NetworkError) Category() ErrorCategory { return ErrCategoryNetwork }

// RemoteCallError means the service answered with a non-success status.
type RemoteCallError struct {
	Op         string
	StatusCode int
	Body       string
	Detail     string // "detail" field of the error body, when present
}

func (e *RemoteCallError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: API call failed: %d - %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: API call failed: %d - %s", e.Op, e.StatusCode, e.Body)
}

// Category returns ErrCategoryRemote
func (e *RemoteCallError) Category() ErrorCategory { return ErrCategoryRemote }

// ProtocolError means the response arrived but is not the structured data expected.
type ProtocolError struct {
	Op      string
	Reason  string
	Snippet string // Leading part of the raw body
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Category returns ErrCategoryProtocol
func (e *ProtocolError) Category() ErrorCategory { return ErrCategoryProtocol }

// AlreadyRunningError is returned when a run is requested while another is in flight.
type AlreadyRunningError struct{}

func (e *AlreadyRunningError) Error() string {
	return "script is already executing"
}

// Category returns ErrCategoryBusy
func (e *AlreadyRunningError) Category() ErrorCategory { return ErrCategoryBusy }

// CategoryOf returns the category of the first categorized error in err's chain.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var categorized interface{ Category() ErrorCategory }
	if errors.As(err, &categorized) {
		return categorized.Category()
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryNone
}

// Snippet trims a response body for inclusion in error messages.
func Snippet(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
