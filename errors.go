package aistudio

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidRequest indicates the request parameters violate an invariant.
	ErrInvalidRequest = errors.New("aistudio: invalid request")

	// ErrInvalidAPIKey indicates the credential is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("aistudio: invalid API key")

	// ErrRateLimited indicates the service's rate limit has been exceeded (HTTP 429).
	ErrRateLimited = errors.New("aistudio: rate limit exceeded")

	// ErrServiceUnavailable indicates the service is temporarily down (HTTP 503).
	ErrServiceUnavailable = errors.New("aistudio: service unavailable")

	// ErrTransport indicates a connection-level failure (DNS, reset, dial timeout).
	ErrTransport = errors.New("aistudio: transport failure")

	// ErrDecode indicates a response could not be interpreted in the requested shape.
	ErrDecode = errors.New("aistudio: response decode failure")

	// ErrNoTools indicates a function-calling generator was invoked before any
	// tool declarations were configured.
	ErrNoTools = errors.New("aistudio: no tool declarations configured")

	// ErrRetriesExhausted indicates the retry policy's attempt or elapsed-time
	// ceiling was reached before a request succeeded.
	ErrRetriesExhausted = errors.New("aistudio: retries exhausted")
)

// ValidationError represents a request parameter or configuration invariant
// violation. It is raised before any network call and is never retried.
type ValidationError struct {
	Field  string // The parameter field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped sentinel (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RequestError represents a non-2xx response from the service.
// StatusCode distinguishes the transient classes (503, 429) from the fatal
// remainder; Retryable mirrors that classification.
type RequestError struct {
	StatusCode int    // HTTP status code
	Body       string // Raw error body from the service
	Retryable  bool   // Whether the transport retries this class
	Err        error  // Wrapped sentinel (ErrRateLimited, ErrServiceUnavailable, ...)
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DecodeError represents a response that could not be interpreted: a
// function-calling response with no tool calls, or tool-call arguments that
// are not valid JSON. There is no silent fallback on this path.
type DecodeError struct {
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (JSON error or ErrDecode)
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode failed: %s (%v)", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error belongs to a failure class the transport
// retries: rate limits, temporary unavailability, and connection failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	if errors.Is(err, ErrServiceUnavailable) {
		return true
	}

	if errors.Is(err, ErrTransport) {
		return true
	}

	return false
}

// IsInvalidRequest checks if an error indicates a fail-fast invariant
// violation. These errors surface before any network call and require the
// caller to change the request.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) {
		return true
	}

	if errors.Is(err, ErrNoTools) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		// HTTP 401/403 indicate auth issues
		return reqErr.StatusCode == 401 || reqErr.StatusCode == 403
	}

	return false
}
