package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies an upstream failure.
type Kind int

const (
	KindUpstream Kind = iota
	KindTimeout
	KindAuth
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "upstream"
	}
}

// Error is returned by every Completer for failed calls.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q %s error (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf reports the Kind of err, defaulting to KindUpstream for errors that
// did not come from a backend.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindUpstream
}

// kindForStatus maps an upstream HTTP status to a Kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUpstream
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportError wraps a failure that happened before any status was received.
func transportError(ctx context.Context, provider string, err error) *Error {
	if ctx.Err() != nil || isTimeout(err) {
		return &Error{Kind: KindTimeout, Provider: provider, Message: "request did not complete in time", Cause: err}
	}
	return &Error{Kind: KindUpstream, Provider: provider, Message: err.Error(), Cause: err}
}
