package mcpbridge

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind identifies the failure class of an Error. The set is closed;
// callers match on the kind instead of error subtypes.
type ErrorKind string

const (
	// KindValidationFailed marks a malformed server configuration rejected
	// at the boundary.
	KindValidationFailed ErrorKind = "validation_failed"
	// KindHandshakeFailed marks a failed initialize attempt. Handshake
	// failures never abort a call; they surface as warnings.
	KindHandshakeFailed ErrorKind = "handshake_failed"
	// KindHTTPError marks a non-2xx status on the primary exchange.
	KindHTTPError ErrorKind = "http_error"
	// KindNetworkError marks a transport-level failure such as a DNS error
	// or connection reset.
	KindNetworkError ErrorKind = "network_error"
	// KindTimeout marks a call that exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidJSON marks an unparsable or wrong-version response body.
	KindInvalidJSON ErrorKind = "invalid_json"
	// KindMCPError marks a protocol-level error reported by the server.
	KindMCPError ErrorKind = "mcp_error"
	// KindSSEConnectionFailed marks an event stream that could not be opened.
	KindSSEConnectionFailed ErrorKind = "sse_connection_failed"
	// KindNoResponse marks a stream that closed before a matching response
	// message arrived.
	KindNoResponse ErrorKind = "no_response"
)

// Error is the failure type returned by all client operations.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status carries the HTTP status code when the failure originated from a
	// non-2xx response.
	Status int
	// Body holds the raw response body for diagnostics, when available.
	Body string
	Err  error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyErr maps a transport-level failure to its error kind. Deadline and
// network timeouts are distinguished from other failures so callers can
// treat them separately from protocol errors.
func classifyErr(err error, fallback ErrorKind, message string) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: message + ": deadline exceeded", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: message + ": timeout", Err: err}
	}
	return &Error{Kind: fallback, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}
