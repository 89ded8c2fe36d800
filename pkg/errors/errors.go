// Package errors provides structured error types for the ticketblaster application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI commands and the interactive shell
//   - Machine-readable error codes for programmatic handling
//   - Short, user-facing status messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Every failure a user can trigger maps to exactly one code:
//   - MISSING_BACKGROUND: the background image path does not exist
//   - IMAGE_DECODE: the background exists but is not a readable raster
//   - INVALID_NUMBER: a layout field is not an integer
//   - TRANSPORT: any SMTP connection, authentication or delivery fault
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidNumber, "qr size %q is not an integer", raw)
//	if errors.Is(err, errors.ErrCodeInvalidNumber) {
//	    // surface in the status line
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeTransport, origErr, "send failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidNumber Code = "INVALID_NUMBER"

	// Image errors
	ErrCodeMissingBackground Code = "MISSING_BACKGROUND"
	ErrCodeImageDecode       Code = "IMAGE_DECODE"
	ErrCodeImageEncode       Code = "IMAGE_ENCODE"
	ErrCodeQREncode          Code = "QR_ENCODE"
	ErrCodeQRDecode          Code = "QR_DECODE"

	// Mail errors
	ErrCodeTransport   Code = "TRANSPORT"
	ErrCodeBusy        Code = "BUSY"
	ErrCodeCredentials Code = "CREDENTIALS"

	// Configuration errors
	ErrCodeConfig Code = "CONFIG"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
