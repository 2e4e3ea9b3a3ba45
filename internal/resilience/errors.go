package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// httpStatuser is implemented by API errors that carry a response status.
type httpStatuser interface {
	HTTPStatus() int
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is worth retrying: an error exposing a
// retryable HTTPStatus, a network timeout, or a reset/refused connection.
// Context cancellation and deadlines are never transient.
func IsTransient(err error) bool {
	if err == nil || isContextErr(err) {
		return false
	}

	var hs httpStatuser
	if errors.As(err, &hs) && hs.HTTPStatus() > 0 {
		return IsTransientHTTPStatus(hs.HTTPStatus())
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
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a response status is retryable.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Classify labels err "canceled", "transient" or "permanent" for logs.
func Classify(err error) string {
	switch {
	case isContextErr(err):
		return "canceled"
	case IsTransient(err):
		return "transient"
	}
	return "permanent"
}
