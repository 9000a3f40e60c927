package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing failures. The poll engine maps these onto
// per-host result statuses, so the set mirrors the failure taxonomy:
// CONFIG is fatal at startup, everything else is captured per host.
const (
	ErrConfig  = "CONFIG"
	ErrSSH     = "SSH"
	ErrTimeout = "TIMEOUT"
	ErrParse   = "PARSE"
	ErrExec    = "EXEC"
)

// Error is a structured error with a code, a human message, an actionable
// suggestion, and an optional cause.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Detail returns the message plus the cause on one line, suitable for
// embedding in a poll result diagnostic rather than terminal output.
func (e *Error) Detail() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code == code
	}
	return false
}

// Code extracts the code from a structured Error, or "" for other errors.
func Code(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ""
}
