package errors

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeNotFound                     Code = "NOT_FOUND"
	CodeBadConnection                Code = "BAD_CONNECTION"
	CodeInsufficientParentOrAccount  Code = "INSUFFICIENT_PARENT_OR_ACCOUNT"
	CodeInconsistentParentAndAccount Code = "INCONSISTENT_PARENT_AND_ACCOUNT"
	CodeInvalidType                  Code = "INVALID_TYPE"
)

// Error is a category-layer failure carrying one of the boundary codes.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

var (
	ErrNotFound                     = newError(CodeNotFound, "Not Found")
	ErrBadConnection                = newError(CodeBadConnection, "Bad Connection")
	ErrInsufficientParentOrAccount  = newError(CodeInsufficientParentOrAccount, "Category requires a parent or an account")
	ErrInconsistentParentAndAccount = newError(CodeInconsistentParentAndAccount, "Category with requested parent_id and account_id not found")
	ErrInvalidType                  = newError(CodeInvalidType, "Action not permitted for type")

	ErrMoveIntoDescendant = &Error{Code: CodeInconsistentParentAndAccount, Msg: "new parent cannot be a descendant of the node being moved"}
	ErrRootImmutable      = &Error{Code: CodeInconsistentParentAndAccount, Msg: "account root cannot be moved or promoted away"}
)

// NotFound reports a missing record of the given kind.
func NotFound(kind string, id int64) error {
	return &Error{Code: CodeNotFound, Msg: fmt.Sprintf("%s %d not found", kind, id)}
}

// BadConnection wraps a storage failure.
func BadConnection(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: CodeBadConnection, Msg: op, Err: err}
}

// CodeOf returns the boundary code of err, or "" when err is not a category error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

// ErrOrNil returns ve when it holds at least one error.
func (ve *ValidationErrors) ErrOrNil() error {
	if len(ve.Errors) == 0 {
		return nil
	}
	return ve
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}
