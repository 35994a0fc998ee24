package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError marks a failure that may succeed on a later attempt: 408,
// 429, 5xx, or a broken connection.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// AuthError means the remote system rejected our credentials. It is never
// retried and aborts a run, since every later call would fail the same way.
type AuthError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: authentication failed (status %d)", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: authentication failed (status %d): %s", e.Service, e.StatusCode, e.Body)
}

// IsAuth reports whether err or anything it wraps is an *AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient reports whether err is worth retrying. An AuthError is never
// transient, even if something wrapped it as one.
func IsTransient(err error) bool {
	if err == nil || IsAuth(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransientHTTPStatus reports whether a response status is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsAuthHTTPStatus reports whether a response status means bad credentials.
func IsAuthHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
}

// ClassifyStatus turns a non-2xx response into the matching typed error.
// Statuses that are neither auth nor transient come back as a plain error.
func ClassifyStatus(service string, statusCode int, body string) error {
	switch {
	case IsAuthHTTPStatus(statusCode):
		return &AuthError{Service: service, StatusCode: statusCode, Body: body}
	case IsTransientHTTPStatus(statusCode):
		return NewTransientError(fmt.Errorf("%s: status %d: %s", service, statusCode, body), statusCode)
	default:
		return fmt.Errorf("%s: status %d: %s", service, statusCode, body)
	}
}
