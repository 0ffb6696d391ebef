// ABOUTME: Error hierarchy for completion-service calls: base SDKError plus provider
// ABOUTME: and timeout subtypes. Timeouts are a distinct type checkable with errors.As.
package llm

import "fmt"

// SDKError is the base error type for all completion-service errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns false for the base SDKError. Subtypes override this.
func (e *SDKError) IsRetryable() bool {
	return false
}

// ProviderError represents an error returned by the provider's API.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string { return e.SDKError.Error() }
func (e *ProviderError) Unwrap() error { return e.SDKError.Unwrap() }

// IsRetryable returns the Retryable flag set on the provider error.
func (e *ProviderError) IsRetryable() bool { return e.Retryable }

// TimeoutError means the completion call exceeded its caller-supplied timeout.
// The pending call is discarded; the error flows through the standard recovery
// path. Retryable.
type TimeoutError struct {
	SDKError
	Timeout string // human-readable duration that was exceeded
}

// NewTimeoutError creates a TimeoutError for the given timeout description.
func NewTimeoutError(timeout string, cause error) *TimeoutError {
	return &TimeoutError{
		SDKError: SDKError{
			Message: fmt.Sprintf("completion request timed out after %s", timeout),
			Cause:   cause,
		},
		Timeout: timeout,
	}
}

func (e *TimeoutError) Error() string     { return e.SDKError.Error() }
func (e *TimeoutError) Unwrap() error     { return e.SDKError.Unwrap() }
func (e *TimeoutError) IsRetryable() bool { return true }

// retryabler is implemented by errors that know whether they are transient.
type retryabler interface {
	IsRetryable() bool
}

// IsRetryable reports whether err is worth retrying. Unknown error types
// default to retryable, matching provider SDK behavior for network-level faults.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r, ok := err.(retryabler); ok {
		return r.IsRetryable()
	}
	return true
}
