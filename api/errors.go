package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Error type identifiers returned in Error.Type. The set is closed:
// every failure the client can surface maps to exactly one of these.
const (
	ErrorTypeConfig      = "Config"
	ErrorTypeNetwork     = "Network"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeRateLimited = "RateLimited"
	ErrorTypeNotFound    = "NotFound"
	ErrorTypeServer      = "Server"
	ErrorTypeParse       = "Parse"
)

// Error is the typed error surfaced by the client. Parse failures are
// reported distinctly from transport failures to aid diagnosis.
type Error struct {
	Type       string
	Message    string
	Endpoint   string
	StatusCode int
	RequestID  string
	Timestamp  time.Time
	Duration   time.Duration
	Cause      error
}

// Error implements error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s (endpoint %s)", msg, e.Endpoint)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*Error); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsNotFound reports whether err is a remote not-found outcome.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeNotFound
}

// IsRateLimited reports whether the remote signalled its own rate limit.
func IsRateLimited(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeRateLimited
}

// configError reports an invalid configuration value. Fatal to the
// subsystem it names, never to the process.
func configError(message string) *Error {
	return &Error{
		Type:      ErrorTypeConfig,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// classifyTransport maps a failed round trip to Network or Timeout.
func classifyTransport(endpoint string, err error, duration time.Duration) *Error {
	errType := ErrorTypeNetwork
	message := "request failed"

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		errType = ErrorTypeTimeout
		message = "request timed out"
	case errors.Is(err, context.DeadlineExceeded):
		errType = ErrorTypeTimeout
		message = "request timed out"
	}

	return &Error{
		Type:      errType,
		Message:   message,
		Endpoint:  endpoint,
		Timestamp: time.Now(),
		Duration:  duration,
		Cause:     err,
	}
}

// classifyStatus maps a non-2xx response to RateLimited, NotFound or Server.
func classifyStatus(endpoint string, statusCode int, duration time.Duration) *Error {
	errType := ErrorTypeServer
	message := fmt.Sprintf("remote returned HTTP %d", statusCode)
	switch statusCode {
	case 404:
		errType = ErrorTypeNotFound
		message = "resource not found"
	case 429:
		errType = ErrorTypeRateLimited
		message = "remote rate limit exceeded"
	}

	return &Error{
		Type:       errType,
		Message:    message,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Timestamp:  time.Now(),
		Duration:   duration,
	}
}

// parseError reports a malformed response body.
func parseError(endpoint string, err error) *Error {
	return &Error{
		Type:      ErrorTypeParse,
		Message:   "malformed response body",
		Endpoint:  endpoint,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// outcomeCode maps an error to the short code written to the request log
// and used as the metrics outcome label.
func outcomeCode(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case ErrorTypeTimeout:
			return "timeout"
		case ErrorTypeRateLimited:
			return "rate_limited"
		case ErrorTypeNotFound:
			return "not_found"
		case ErrorTypeServer:
			return "server"
		case ErrorTypeParse:
			return "parse"
		}
	}
	return "network"
}
