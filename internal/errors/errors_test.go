package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIErrorMatchesThroughWrapping(t *testing.T) {
	err := Wrap(NewAPIError("ka10095", 1, "err"), "current price")

	var apiErr *APIError
	if !As(err, &apiErr) {
		t.Fatalf("expected APIError in chain, got %v", err)
	}
	if apiErr.Code != 1 || apiErr.Message != "err" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if IsTransient(err) {
		t.Fatalf("api error must not be reported as transient")
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransportError("ka10098", 0, cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if !IsTransient(Wrapf(err, "scan %s", "after-hours")) {
		t.Fatalf("expected transient error")
	}
	if got := NewTransportError("kt10000", 502, cause).Error(); got != "transport error [kt10000]: http 502: connection refused" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestValidationErrorIsInvalidOrder(t *testing.T) {
	err := NewOrderError("005930", "BUY", "rejected", NewValidationError("quantity", 0, "must be positive"))
	if !Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder in chain: %v", err)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}
