// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenIssuance    = errors.New("token issuance failed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrDataNotFound     = errors.New("data not found")
	ErrReadOnlyMode     = errors.New("operation blocked: dry-run mode enabled")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrMissingStrategy  = errors.New("strategy name required")
	ErrDatabaseError    = errors.New("database error")
)

// TransportError represents a network or HTTP level failure talking to the broker.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error [%s]: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op string, statusCode int, err error) *TransportError {
	return &TransportError{
		Op:         op,
		StatusCode: statusCode,
		Err:        err,
	}
}

// APIError is a non-zero return_code inside an otherwise successful response.
type APIError struct {
	APIID   string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error [%s] code %d: %s", e.APIID, e.Code, e.Message)
}

// NewAPIError creates a new APIError.
func NewAPIError(apiID string, code int, message string) *APIError {
	return &APIError{
		APIID:   apiID,
		Code:    code,
		Message: message,
	}
}

// OrderError represents an error related to order operations.
type OrderError struct {
	StockCode string
	Action    string
	Reason    string
	Err       error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error %s %s: %s: %v", e.Action, e.StockCode, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error %s %s: %s", e.Action, e.StockCode, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(stockCode, action, reason string, err error) *OrderError {
	return &OrderError{
		StockCode: stockCode,
		Action:    action,
		Reason:    reason,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match validation failures of orders against ErrInvalidOrder.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidOrder
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StrategyError wraps a failure raised while loading or running a strategy.
type StrategyError struct {
	Strategy  string
	Operation string
	Err       error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy error [%s] %s: %v", e.Strategy, e.Operation, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// NewStrategyError creates a new StrategyError.
func NewStrategyError(strategy, operation string, err error) *StrategyError {
	return &StrategyError{
		Strategy:  strategy,
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsTransient reports whether err came from the transport layer rather than the API.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
