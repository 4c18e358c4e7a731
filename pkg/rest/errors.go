package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Static errors for err113 compliance. The typed errors below wrap these so
// callers can branch with errors.Is as well as errors.As.
var (
	ErrMissingArgument    = errors.New("missing argument")
	ErrMissingParameter   = errors.New("parameter not present")
	ErrTransport          = errors.New("transport failure")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrMisuse             = errors.New("misuse")
	ErrPayloadAlreadySet  = errors.New("payload already set")
	ErrCancelled          = errors.New("pending result cancelled")
	ErrDescriptorNotFound = errors.New("descriptor not registered")
	ErrInvalidDescriptor  = errors.New("invalid descriptor")
	ErrUnexpectedResult   = errors.New("unexpected result type")
	ErrNoDispatcher       = errors.New("no dispatcher configured")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientQuota  = errors.New("insufficient resources")
)

// MissingArgumentError reports a path, query or header argument the caller
// did not supply. It is never retried.
type MissingArgumentError struct {
	Descriptor string
	Name       string
}

// Error implements the error interface.
func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing argument %q", e.Descriptor, e.Name)
}

// Unwrap returns ErrMissingArgument.
func (e *MissingArgumentError) Unwrap() error {
	return ErrMissingArgument
}

// MissingParameterError reports a named binder parameter that is required but
// absent from the parameter map.
type MissingParameterError struct {
	Binder string
	Name   string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: %s parameter not present", e.Binder, e.Name)
}

// Unwrap returns ErrMissingParameter.
func (e *MissingParameterError) Unwrap() error {
	return ErrMissingParameter
}

// MisuseError signals a programming mistake, such as a whole-object binder
// called without an object. Always fatal.
type MisuseError struct {
	Component string
	Reason    string
}

// Error implements the error interface.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}

// Unwrap returns ErrMisuse.
func (e *MisuseError) Unwrap() error {
	return ErrMisuse
}

// TransportErrorKind classifies transport level failures.
type TransportErrorKind int

const (
	// TransportConnection covers refused connections, DNS and I/O failures.
	TransportConnection TransportErrorKind = iota
	// TransportTimeout covers deadline expiry while waiting for the server.
	TransportTimeout
	// TransportCancelled covers caller cancellation.
	TransportCancelled
)

// String returns the kind name.
func (k TransportErrorKind) String() string {
	switch k {
	case TransportConnection:
		return "connection"
	case TransportTimeout:
		return "timeout"
	case TransportCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TransportError is returned by dispatchers when no HTTP response was
// obtained. It is distinct from HTTPStatusError.
type TransportError struct {
	Kind   TransportErrorKind
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s error: %s %s: %v", e.Kind, e.Method, e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// HTTPStatusError is a non-2xx response that was not absorbed by a fallback.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	msg := fmt.Sprintf("%s %s: HTTP %s", e.Method, e.URL, status)

	body := strings.TrimSpace(string(e.Body))
	if body != "" {
		msg += ": " + body
	}

	return msg
}

// IsClientError reports whether the status is 4xx.
func (e *HTTPStatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError reports whether the status is 5xx.
func (e *HTTPStatusError) IsServerError() bool {
	return e.StatusCode >= 500
}

// MalformedResponseError is raised by structured parsers that could not
// interpret a body they expected to be well formed.
type MalformedResponseError struct {
	Parser   string
	Fragment string
	Err      error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: malformed response near %q", e.Parser, e.Fragment)
	}

	return fmt.Sprintf("%s: malformed response near %q: %v", e.Parser, e.Fragment, e.Err)
}

// Unwrap exposes both the sentinel and the decoding cause.
func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}

	return []error{ErrMalformedResponse, e.Err}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	statusErr := &HTTPStatusError{}
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrResourceNotFound) {
		return true
	}

	return StatusCode(err) == http.StatusNotFound
}

// IsClientError checks if the error carries a 4xx status.
func IsClientError(err error) bool {
	statusErr := &HTTPStatusError{}
	if errors.As(err, &statusErr) {
		return statusErr.IsClientError()
	}

	return false
}

// IsTransport checks if the error happened below the HTTP layer.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
