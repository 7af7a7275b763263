package broker

import (
	"context"
	"errors"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// IsTransient reports whether err looks like a transport-level failure worth
// retrying: timeouts, connection errors, rate limiting, and 5xx responses.
// Definite API rejections (insufficient buying power, halted symbol, bad
// request) are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// No structured API error: the request never produced a response, so the
	// outcome at the brokerage is unknown.
	return true
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *alpaca.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
