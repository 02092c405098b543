package pricedata

import (
	"context"
	"errors"
	"fmt"
	"net"

	xhttp "AlertEngine/pkg/http"
)

// ErrorKind classifies price service failures.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "NETWORK"
	KindTimeout         ErrorKind = "TIMEOUT"
	KindRateLimit       ErrorKind = "RATE_LIMIT"
	KindBadRequest      ErrorKind = "BAD_REQUEST"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindServerError     ErrorKind = "SERVER_ERROR"
	KindInvalidResponse ErrorKind = "INVALID_RESPONSE"
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("pricedata %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("pricedata %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit, KindServerError:
		return true
	default:
		return false
	}
}

// IsKind reports whether err is a pricedata Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == 400:
		return KindBadRequest
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimit
	case status >= 500 && status <= 599:
		return KindServerError
	default:
		return KindInvalidResponse
	}
}

// classify maps transport errors onto the error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return &Error{Kind: kindForStatus(se.StatusCode), Status: se.StatusCode, Message: fmt.Sprintf("HTTP %d", se.StatusCode), Err: err}
	}
	var de *xhttp.DecodeError
	if errors.As(err, &de) {
		return &Error{Kind: KindInvalidResponse, Message: "invalid response body", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "deadline exceeded", Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return &Error{Kind: KindTimeout, Message: "timeout", Err: err}
		}
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "request canceled", Err: err}
	}
	return &Error{Kind: KindInvalidResponse, Message: "unexpected error", Err: err}
}
