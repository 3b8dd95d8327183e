package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable error", NewRetryable("timeout"), true},
		{"rejection", NewRejected(-2010, "insufficient margin"), false},
		{"wrapped retryable", fmt.Errorf("place order: %w", NewRetryable("timeout")), true},
		{"wrapped rejection", fmt.Errorf("place order: %w", NewRejected(-1013, "bad qty")), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"ccxt network error", errors.New("ccxt.NetworkError: binance GET"), true},
		{"ccxt request timeout", errors.New("RequestTimeout: binance did not respond"), true},
		{"ccxt rate limit", errors.New("RateLimitExceeded: too many requests"), true},
		{"ccxt maintenance", errors.New("OnMaintenance: wallet maintenance"), true},
		{"tcp refused", errors.New("dial tcp: connection refused"), true},
		{"truncated response", errors.New("unexpected EOF"), true},
		{"insufficient balance", errors.New("binance Account has insufficient balance"), false},
		{"invalid symbol", errors.New("InvalidOrder: symbol not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Retryable != tt.retryable {
				t.Errorf("classify(%v).Retryable = %v, want %v", tt.err, got.Retryable, tt.retryable)
			}
		})
	}

	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestError_Message(t *testing.T) {
	withCode := NewRejected(-2010, "insufficient margin")
	if withCode.Error() != "exchange error -2010: insufficient margin" {
		t.Errorf("unexpected message: %s", withCode.Error())
	}
	withoutCode := NewRetryable("timeout")
	if withoutCode.Error() != "exchange error: timeout" {
		t.Errorf("unexpected message: %s", withoutCode.Error())
	}
}
