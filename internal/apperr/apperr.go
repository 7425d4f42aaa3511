// Package apperr holds the typed errors returned by the deposit workflow.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidOperation   Code = "INVALID_OPERATION"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeForbidden          Code = "FORBIDDEN"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPreconditionFailed = &Error{Code: CodePreconditionFailed, Message: "precondition failed"}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidOperation   = &Error{Code: CodeInvalidOperation, Message: "invalid operation"}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition, Message: "invalid transition"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
)

type Error struct {
	Code     Code   `json:"code"`
	Message  string `json:"error"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (e *Error) Error() string {
	if e.Expected != "" || e.Actual != "" {
		return fmt.Sprintf("%s: %s (expected %s, actual %s)", e.Code, e.Message, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Precondition(message string, expected, actual any) *Error {
	return &Error{
		Code:     CodePreconditionFailed,
		Message:  message,
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
	}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func InvalidOperation(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidOperation, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(from, to any) *Error {
	return &Error{
		Code:     CodeInvalidTransition,
		Message:  "transition not allowed",
		Expected: fmt.Sprintf("a successor of %v", from),
		Actual:   fmt.Sprint(to),
	}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
