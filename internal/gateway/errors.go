// ABOUTME: Tagged error type returned by every gateway client operation
// ABOUTME: Classifies failures as invalid URL, invalid response, server or transport errors

package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a gateway failure.
type ErrorKind int

const (
	// KindInvalidBaseURL means the base URL was empty or not absolute.
	KindInvalidBaseURL ErrorKind = iota + 1
	// KindInvalidResponse means the response could not be read.
	KindInvalidResponse
	// KindServer means the gateway returned a non-2xx status.
	KindServer
	// KindTransport means the request never produced a response.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidBaseURL:
		return "invalid_base_url"
	case KindInvalidResponse:
		return "invalid_response"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ErrInvalidBaseURL matches any *Error of kind KindInvalidBaseURL via errors.Is.
var ErrInvalidBaseURL = &Error{Kind: KindInvalidBaseURL}

// ErrStreamConsumed is yielded when a stream is iterated a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// Error is the single error type produced by the gateway client.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // set for KindServer
	Body       string // response body for KindServer, may be empty
	Err        error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidBaseURL:
		if e.Err != nil {
			return fmt.Sprintf("invalid gateway base URL: %v", e.Err)
		}
		return "invalid gateway base URL"
	case KindInvalidResponse:
		if e.Err != nil {
			return fmt.Sprintf("invalid gateway response: %v", e.Err)
		}
		return "invalid gateway response"
	case KindServer:
		if e.Body != "" {
			return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	case KindTransport:
		return fmt.Sprintf("gateway transport error: %v", e.Err)
	default:
		return "gateway error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so sentinel values like ErrInvalidBaseURL match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// KindOf returns the kind of a gateway error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// IsServerError reports whether err is a non-2xx gateway response.
func IsServerError(err error) bool {
	return KindOf(err) == KindServer
}

// IsTransportError reports whether err is a connection-level failure.
func IsTransportError(err error) bool {
	return KindOf(err) == KindTransport
}

func invalidBaseURL(cause error) *Error {
	return &Error{Kind: KindInvalidBaseURL, Err: cause}
}

func invalidResponse(cause error) *Error {
	return &Error{Kind: KindInvalidResponse, Err: cause}
}

func serverError(status int, body string) *Error {
	return &Error{Kind: KindServer, StatusCode: status, Body: body}
}

func transportError(cause error) *Error {
	return &Error{Kind: KindTransport, Err: cause}
}
