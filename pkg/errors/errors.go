// Package errors provides structured error types for depfetch.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure classes of the fetch pipeline:
//   - CONFIGURATION: malformed input, mutation after a freeze point, stages out of order
//   - INTEGRITY: a downloaded or cached file does not match its expected digest
//   - ACQUISITION: every repository failed for one coordinate
//   - COLLABORATOR: the relocation or load collaborator failed
//   - NETWORK_ERROR / NOT_FOUND: transport failures
//   - CANCELLED: work skipped because an earlier task in its batch failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "invalid coordinate: %s", s)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input and lifecycle errors
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"

	// Verification and acquisition errors
	ErrCodeIntegrity   Code = "INTEGRITY"
	ErrCodeAcquisition Code = "ACQUISITION"

	// External collaborator errors
	ErrCodeCollaborator Code = "COLLABORATOR"

	// Transport errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeCancelled   Code = "CANCELLED"
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

// coder is implemented by the dedicated error types below.
type coder interface {
	Code() Code
}

// Is reports whether any error in err's tree carries the given code.
// Both single (Unwrap() error) and joined (Unwrap() []error) chains are walked.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *Error:
		if e.Code == code {
			return true
		}
	case coder:
		if e.Code() == code {
			return true
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return Is(u.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if no coded error is found in the chain.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
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

// IntegrityError reports a digest mismatch for a file on disk.
type IntegrityError struct {
	Path     string // File that was verified
	Expected string // Expected lowercase hex digest
	Actual   string // Computed lowercase hex digest
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Code returns the error code for this error type.
func (e *IntegrityError) Code() Code { return ErrCodeIntegrity }

// AcquisitionError is returned when every repository failed for one coordinate.
// Causes holds exactly one entry per repository attempted, in attempt order.
type AcquisitionError struct {
	Coordinate string
	Causes     []error
}

// Error implements the error interface.
func (e *AcquisitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d repositories failed for %s", len(e.Causes), e.Coordinate)
	for _, c := range e.Causes {
		b.WriteString("\n  - ")
		b.WriteString(c.Error())
	}
	return b.String()
}

// Code returns the error code for this error type.
func (e *AcquisitionError) Code() Code { return ErrCodeAcquisition }

// Unwrap exposes the per-repository causes to errors.Is and errors.As.
func (e *AcquisitionError) Unwrap() []error { return e.Causes }
