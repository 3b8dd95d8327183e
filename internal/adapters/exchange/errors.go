package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrOrderNotFound is returned when an order lookup finds nothing.
var ErrOrderNotFound = errors.New("order not found")

// Error is a typed exchange failure. Retryable errors (network, timeouts,
// 5xx, rate limits) may be retried with backoff; everything else is a
// terminal rejection.
type Error struct {
	Code      int
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exchange error: %s", e.Message)
}

// NewRetryable builds a transient exchange error.
func NewRetryable(message string) *Error {
	return &Error{Message: message, Retryable: true}
}

// NewRejected builds a terminal exchange error.
func NewRejected(code int, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: false}
}

// IsRetryable reports whether err should go through the backoff-retry path.
func IsRetryable(err error) bool {
	var exErr *Error
	if errors.As(err, &exErr) {
		return exErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// classify maps a raw ccxt error onto the retryable/terminal split.
// ccxt wraps its exception class name into the error string.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	transient := []string{
		"NetworkError",
		"RequestTimeout",
		"ExchangeNotAvailable",
		"DDoSProtection",
		"RateLimitExceeded",
		"OnMaintenance",
		"connection refused",
		"timeout",
		"EOF",
	}
	for _, marker := range transient {
		if strings.Contains(msg, marker) {
			return NewRetryable(msg)
		}
	}

	return NewRejected(0, msg)
}
