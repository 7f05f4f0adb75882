package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Errors returned by generators. Provider adapters wrap the underlying cause
// with one of these so callers can branch on errors.Is.
var (
	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrAuthRequired is returned when the provider rejects the credentials
	ErrAuthRequired = errors.New("generator authentication required")

	// ErrRateLimited is returned when the provider throttles the request
	ErrRateLimited = errors.New("generator rate limited")

	// ErrNetwork is returned when the provider cannot be reached
	ErrNetwork = errors.New("generator network error")

	// ErrDecode is returned when the provider response cannot be parsed or is incomplete
	ErrDecode = errors.New("invalid response from language model")

	// ErrServer is returned for provider-side failures
	ErrServer = errors.New("generator server error")
)

// IsRetryable reports whether an error is worth retrying after a delay.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrServer)
}

// FromStatus wraps cause with the sentinel that matches an HTTP status code.
func FromStatus(status int, cause error) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: status %d: %v", ErrAuthRequired, status, cause)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %v", ErrRateLimited, status, cause)
	case status == http.StatusBadRequest, status == http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %v", ErrInvalidConfig, status, cause)
	default:
		return fmt.Errorf("%w: status %d: %v", ErrServer, status, cause)
	}
}

// FromTransport classifies an error raised before any HTTP status was received.
// Context cancellation is returned unchanged.
func FromTransport(cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}

	var netErr net.Error
	if errors.As(cause, &netErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, cause)
	}

	return fmt.Errorf("%w: %v", ErrServer, cause)
}
