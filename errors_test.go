package aistudio

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited sentinel", ErrRateLimited, true},
		{"service unavailable sentinel", ErrServiceUnavailable, true},
		{"transport sentinel", ErrTransport, true},
		{"wrapped transport", fmt.Errorf("%w: connection refused", ErrTransport), true},
		{"retryable request error", &RequestError{StatusCode: 503, Retryable: true, Err: ErrServiceUnavailable}, true},
		{"fatal request error", &RequestError{StatusCode: 400, Retryable: false, Err: ErrInvalidRequest}, false},
		{"invalid API key", ErrInvalidAPIKey, false},
		{"validation error", &ValidationError{Field: "n", Err: ErrInvalidRequest}, false},
		{"unrelated error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrInvalidRequest, true},
		{"no tools", ErrNoTools, true},
		{"validation error", &ValidationError{Field: "stop", Reason: "too many entries"}, true},
		{"wrapped validation error", fmt.Errorf("building request: %w", &ValidationError{Field: "n"}), true},
		{"retryable error", ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidRequest(tt.err); got != tt.want {
				t.Errorf("IsInvalidRequest(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrInvalidAPIKey, true},
		{"401 request error", &RequestError{StatusCode: 401, Err: ErrInvalidAPIKey}, true},
		{"403 request error", &RequestError{StatusCode: 403, Err: ErrInvalidAPIKey}, true},
		{"400 request error", &RequestError{StatusCode: 400, Err: ErrInvalidRequest}, false},
		{"rate limited", ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := &ValidationError{Field: "n", Value: 500, Reason: "out of range", Err: ErrInvalidRequest}

	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("ValidationError should unwrap to ErrInvalidRequest")
	}
	if msg := err.Error(); msg == "" {
		t.Error("Error() should not be empty")
	}
}

func TestRequestError_Unwrap(t *testing.T) {
	err := &RequestError{StatusCode: 429, Body: "slow down", Retryable: true, Err: ErrRateLimited}

	if !errors.Is(err, ErrRateLimited) {
		t.Error("RequestError should unwrap to its sentinel")
	}

	var reqErr *RequestError
	wrapped := fmt.Errorf("request failed: %w", err)
	if !errors.As(wrapped, &reqErr) || reqErr.StatusCode != 429 {
		t.Errorf("errors.As should recover the RequestError from %v", wrapped)
	}
}

func TestDecodeError_Unwrap(t *testing.T) {
	err := &DecodeError{Reason: "response carried no choices", Err: ErrDecode}

	if !errors.Is(err, ErrDecode) {
		t.Error("DecodeError should unwrap to ErrDecode")
	}
	if IsRetryable(err) {
		t.Error("decode failures must never be retryable")
	}
}
