package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound               Code = "not_found"
	CodeBadRequest             Code = "bad_request"
	CodeValidation             Code = "validation_failed"
	CodeInternal               Code = "internal_error"
	CodeConflict               Code = "conflict"
	CodeUnauthorized           Code = "unauthorized"
	CodeForbidden              Code = "forbidden"
	CodeTimeout                Code = "timeout"
	CodeInvalidStateTransition Code = "invalid_state_transition"
	CodeAlreadyIssued          Code = "already_issued"
	CodeUpstreamUnavailable    Code = "upstream_unavailable"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Expected and Actual are populated for invalid_state_transition so
	// callers can tell which source state the operation required.
	Expected []string
	Actual   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Expected: existing.Expected, Actual: existing.Actual}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// InvalidTransition reports that an operation found the entity in the wrong
// source state.
func InvalidTransition(msg, actual string, expected ...string) error {
	return &Error{Code: CodeInvalidStateTransition, Message: msg, Expected: expected, Actual: actual}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the domain code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
