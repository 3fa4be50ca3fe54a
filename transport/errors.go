package transport

import (
	"errors"
	"fmt"
)

// Failure is the uniform shape every transport error is normalized to
// before it reaches the domain services.
type Failure struct {
	// Status is the HTTP status code, or 0 when no response was received.
	Status  int
	Message string
	Body    []byte
}

// NetworkError means the request got no usable response: the server was
// unreachable, the circuit breaker was open, or a success body was not JSON.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Failure() Failure {
	return Failure{Status: 0, Message: "Network Error: " + e.Err.Error()}
}

// HTTPError is a non-2xx response. Message is the server's "message" field
// when the body had one, the status text otherwise.
type HTTPError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s %s: %s", e.Status, e.Method, e.URL, e.Message)
}

func (e *HTTPError) Failure() Failure {
	return Failure{Status: e.Status, Message: e.Message, Body: e.Body}
}

// FailureOf extracts the uniform failure shape from any error chain that
// contains a transport error.
func FailureOf(err error) (Failure, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Failure(), true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Failure(), true
	}
	return Failure{}, false
}

// IsStatus reports whether err carries an HTTP response with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}
