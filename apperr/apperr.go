// Package apperr classifies request failures into a closed set of kinds.
//
// Every failure that leaves the API client is an *AppError built once, at
// the point the failure is observed. Callers switch on Kind or match the
// kind sentinels with errors.Is; they never inspect transport errors or
// message text.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"
)

// AppError is a classified failure.
type AppError struct {
	Kind    Kind
	Message string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Cause      error
	Context    map[string]any
	Timestamp  time.Time
}

var now = time.Now

// New returns an AppError of the given kind. An empty message takes the
// kind's default.
func New(kind Kind, message string, cause error) *AppError {
	if !kind.Valid() {
		kind = KindUnknown
	}
	if message == "" {
		message = defaultMessages[kind]
	}
	return &AppError{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Context:   map[string]any{},
		Timestamp: now(),
	}
}

func (e *AppError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches the kind sentinels, so errors.Is(err, ErrServer) holds for any
// server-kind AppError in err's chain.
func (e *AppError) Is(target error) bool {
	ke, ok := target.(*kindError)
	return ok && ke.kind == e.Kind
}

// With records a context value and returns e.
func (e *AppError) With(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// WithKind returns a copy of e carrying a different kind and message.
func (e *AppError) WithKind(kind Kind, message string) *AppError {
	c := *e
	c.Kind = kind
	c.Message = message
	if c.Message == "" {
		c.Message = defaultMessages[kind]
	}
	c.Context = make(map[string]any, len(e.Context))
	for k, v := range e.Context {
		c.Context[k] = v
	}
	return &c
}

// FromHTTPStatus classifies an HTTP status code.
func FromHTTPStatus(status int, message string, cause error) *AppError {
	var kind Kind
	switch {
	case status == http.StatusBadRequest:
		kind = KindValidation
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusRequestTimeout:
		kind = KindTimeout
	case status == http.StatusTooManyRequests:
		kind = KindNetwork
		if message == "" {
			message = "Too many requests"
		}
	case status >= 500 && status <= 599:
		kind = KindServer
	default:
		kind = KindUnknown
	}
	e := New(kind, message, cause)
	e.StatusCode = status
	return e
}

// FromTransportError classifies a failure that produced no HTTP response.
// An error that already is an AppError is returned unchanged.
func FromTransportError(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return New(KindUnknown, "Request canceled", err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return New(KindTimeout, "", err)
	case isConnectionFailure(err):
		return New(KindNetwork, "Failed to fetch", err)
	default:
		return New(KindUnknown, "", err)
	}
}

func isConnectionFailure(err error) bool {
	var (
		netErr net.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// Normalize converts any error into an AppError.
func Normalize(err error) *AppError {
	return FromTransportError(err)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown when err is not an AppError.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindUnknown
}

// ShouldRetry reports whether the failure is transient. It depends only on
// the kind, and for server errors on the status. Bounding the number of
// attempts is the caller's job.
func ShouldRetry(e *AppError) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return e.StatusCode != http.StatusTooManyRequests
	case KindTimeout:
		return true
	case KindServer:
		return e.StatusCode == http.StatusBadGateway || e.StatusCode == http.StatusServiceUnavailable
	default:
		return false
	}
}

// UserFriendlyMessage returns the message with an actionable suffix for
// display.
func UserFriendlyMessage(e *AppError) string {
	if e == nil {
		return ""
	}
	suffix := friendlySuffixes[e.Kind]
	if e.StatusCode == http.StatusTooManyRequests {
		suffix = "Please wait a moment before trying again."
	}
	if suffix == "" {
		return e.Message
	}
	sep := ". "
	if strings.HasSuffix(e.Message, ".") || strings.HasSuffix(e.Message, "!") || strings.HasSuffix(e.Message, "?") {
		sep = " "
	}
	return e.Message + sep + suffix
}
