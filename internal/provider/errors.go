package provider

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the closed classification of swap-provider failures. Handlers
// translate kinds to wire codes at the boundary; nothing else inspects
// provider status codes or message text.
type ErrorKind string

const (
	// ErrorKindAuth means the gateway's own provider credential was rejected.
	// This is a gateway misconfiguration, never a caller error.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRateLimited means the provider throttled the gateway.
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindValidation means the provider rejected the shaped payload,
	// which usually reflects a caller-supplied parameter.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindUnavailable covers network failures, timeouts and 5xx
	// responses. Retriable by the caller under the same idempotency key.
	ErrorKindUnavailable ErrorKind = "unavailable"
)

type Error struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("swap provider %s error: %s", e.Kind, e.Message)
}

// classifyResponse folds an HTTP status and response message into the
// taxonomy. Message substrings break ties on ambiguous 4xx codes.
func classifyResponse(status int, message string) *Error {
	lower := strings.ToLower(message)
	kind := ErrorKindUnavailable
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrorKindAuth
	case status == http.StatusTooManyRequests:
		kind = ErrorKindRateLimited
	case status >= 400 && status < 500:
		kind = ErrorKindValidation
	case strings.Contains(lower, "invalid api key") || strings.Contains(lower, "unauthorized"):
		kind = ErrorKindAuth
	case strings.Contains(lower, "rate limit"):
		kind = ErrorKindRateLimited
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Message: message, HTTPStatus: status}
}

func transportError(err error) *Error {
	return &Error{Kind: ErrorKindUnavailable, Message: err.Error()}
}
