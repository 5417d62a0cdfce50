package domain

import (
	"fmt"
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion api status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion api status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match the error with errors.Is(err, ErrUpstream).
func (e *APIError) Unwrap() error { return ErrUpstream }

// TransportError is a network failure or per-attempt timeout.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("completion request timed out: %v", e.Err)
	}
	return fmt.Sprintf("completion transport: %v", e.Err)
}

// Unwrap exposes both the sentinel class and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Timeout {
		return []error{ErrUpstreamTimeout, e.Err}
	}
	return []error{ErrUpstream, e.Err}
}
