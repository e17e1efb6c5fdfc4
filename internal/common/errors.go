package common

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed mutation input. The operation is
// rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced holding or ticker does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// TransientFetchError reports a network or upstream failure. Retryable;
// existing state is never corrupted by one.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// NewTransientFetchError wraps an upstream failure
func NewTransientFetchError(op string, err error) *TransientFetchError {
	return &TransientFetchError{Op: op, Err: err}
}

// PartialDataError reports that secondary data (e.g. ratios) is unavailable
// while primary data is fine.
type PartialDataError struct {
	Component string
	Err       error
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
}

func (e *PartialDataError) Unwrap() error { return e.Err }

// NewPartialDataError wraps a secondary-data failure
func NewPartialDataError(component string, err error) *PartialDataError {
	return &PartialDataError{Component: component, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransientFetch reports whether err is (or wraps) a TransientFetchError
func IsTransientFetch(err error) bool {
	var tf *TransientFetchError
	return errors.As(err, &tf)
}

// IsPartialData reports whether err is (or wraps) a PartialDataError
func IsPartialData(err error) bool {
	var pd *PartialDataError
	return errors.As(err, &pd)
}
