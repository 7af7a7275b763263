package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

func TestIsTransient(t *testing.T) {
	if !IsTransient(errors.New("connection reset")) {
		t.Fatalf("plain transport error should be transient")
	}
	if !IsTransient(&alpaca.APIError{StatusCode: 503}) {
		t.Fatalf("5xx should be transient")
	}
	if !IsTransient(&alpaca.APIError{StatusCode: 429}) {
		t.Fatalf("429 should be transient")
	}
	if IsTransient(&alpaca.APIError{StatusCode: 403, Message: "insufficient buying power"}) {
		t.Fatalf("4xx rejection should not be transient")
	}
	if IsTransient(context.Canceled) {
		t.Fatalf("cancellation should not be transient")
	}
	if IsTransient(nil) {
		t.Fatalf("nil should not be transient")
	}
}

func TestIsNotFound(t *testing.T) {
	wrapped := fmt.Errorf("get position: %w", &alpaca.APIError{StatusCode: 404})
	if !IsNotFound(wrapped) {
		t.Fatalf("wrapped 404 should be not-found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatalf("plain error should not be not-found")
	}
}
