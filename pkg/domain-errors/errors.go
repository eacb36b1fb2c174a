// Package domainerrors defines coded errors shared by services, handlers and
// domain models. Handlers translate codes into transport status; services wrap
// infrastructure failures with CodeInternal so details never leak to callers.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for translation at the transport boundary.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Validation errors additionally carry the
// offending field, the rule it broke and the rejected value.
type Error struct {
	Code    Code
	Message string
	Field   string
	Rule    string
	Value   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds the error returned for a rejected field at construction time.
func Validation(field, rule string, value any) error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf("%s: %s", field, rule),
		Field:   field,
		Rule:    rule,
		Value:   fmt.Sprint(value),
	}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}
