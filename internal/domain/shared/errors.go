package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrQuotaExceeded       = NewDomainError("QUOTA_EXCEEDED", "Plan quota exceeded")
)

// ---------------------------------------------------------------------------
// External error classification
// ---------------------------------------------------------------------------
//
// Every failure coming back from a storefront platform, supplier, or payment
// provider is normalized into one of three classes before it reaches a
// service: validation failures are rejected immediately, transient failures
// are retried with bounded backoff, and permanent failures are surfaced to
// the operator on the owning entity. Nothing escapes as a raw error.

// ValidationError indicates malformed input or a policy rejection.
// It is never retried.
type ValidationError struct {
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError creates a ValidationError with the given reason
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// TransientExternalError indicates a retryable external failure such as a
// timeout, a 5xx response, or a rate limit.
type TransientExternalError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransientExternalError) Error() string {
	return fmt.Sprintf("transient external error in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransientExternalError) Unwrap() error {
	return e.Err
}

// NewTransientExternalError wraps err as a retryable external failure
func NewTransientExternalError(op string, err error) *TransientExternalError {
	return &TransientExternalError{Op: op, Err: err}
}

// PermanentExternalError indicates a terminal external failure such as a 4xx
// business rejection or out-of-stock. Retrying will not help.
type PermanentExternalError struct {
	Op     string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *PermanentExternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permanent external error in %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("permanent external error in %s: %s", e.Op, e.Reason)
}

// Unwrap returns the underlying error
func (e *PermanentExternalError) Unwrap() error {
	return e.Err
}

// NewPermanentExternalError creates a terminal external failure
func NewPermanentExternalError(op, reason string, err error) *PermanentExternalError {
	return &PermanentExternalError{Op: op, Reason: reason, Err: err}
}

// ConsistencyConflict indicates a state collision that is resolved by the
// owning component's policy (discard stale revision, serialize via lock).
type ConsistencyConflict struct {
	Reason string
}

// Error implements the error interface
func (e *ConsistencyConflict) Error() string {
	return fmt.Sprintf("consistency conflict: %s", e.Reason)
}

// NewConsistencyConflict creates a ConsistencyConflict with the given reason
func NewConsistencyConflict(reason string) *ConsistencyConflict {
	return &ConsistencyConflict{Reason: reason}
}

// IsTransient reports whether err is classified as retryable
func IsTransient(err error) bool {
	var t *TransientExternalError
	return errors.As(err, &t)
}

// IsPermanent reports whether err is classified as terminal
func IsPermanent(err error) bool {
	var p *PermanentExternalError
	return errors.As(err, &p)
}

// IsValidation reports whether err is a validation rejection
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
