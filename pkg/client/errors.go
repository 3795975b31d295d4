package client

import (
	"fmt"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses, e.g. a malformed search
	// expression. Never worth retrying.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses. Potentially retryable,
	// but retry policy belongs to the caller, not this client.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures before any HTTP
	// status was received.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a malformed response payload.
	ErrorClassDecode ErrorClass = "decode"
)

// TransportError wraps a network failure (DNS, connect, timeout).
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("openFDA transport error for %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Endpoint   string

	// Message is the API's own error message when the error body could
	// be parsed, otherwise the HTTP status text.
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("openFDA %s error (status %d) on %s: %s",
		e.Class(), e.StatusCode, e.Endpoint, e.Message)
}

// Class categorizes the error by status code range.
func (e *HTTPError) Class() ErrorClass {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}

// Retryable reports whether a retry could plausibly succeed. 4xx means
// the request itself is wrong and will fail again.
func (e *HTTPError) Retryable() bool {
	return e.Class() == ErrorClassServer
}

// DecodeError wraps a payload that was not well-formed JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("openFDA decode error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
