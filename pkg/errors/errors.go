// Package errors carries reportflow's machine-readable failure codes.
//
// Every failure that reaches a user is an [*Error] with a [Code]. The code's
// [Kind] decides how it surfaces: an HTTP status in the API, an exit status
// in the CLI. The wrapped cause is kept for logs and for errors.Is.
//
// A layout with OVERLAP or BOUNDS issues is not an error. The pipeline
// returns it as a normal result; ErrCodeLayoutValidationFailed is raised only
// by the layers that refuse to act on such a result, export first of all.
//
//	err := errors.Invalid("meta.employeeName", "meta.employeeName is required")
//	if errors.Is(err, errors.ErrCodeInvalidPayload) {
//	    // errors.FieldOf(err) == "meta.employeeName"
//	}
//
//	err = errors.Wrap(errors.ErrCodeExportFailed, cause, "render %s", format)
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code. It is part of the API contract.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPayload  Code = "INVALID_PAYLOAD"
	ErrCodeInvalidPageSize Code = "INVALID_PAGE_SIZE"
	ErrCodeInvalidStyle    Code = "INVALID_STYLE"
	ErrCodeInvalidIntent   Code = "INVALID_INTENT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeReportNotFound Code = "REPORT_NOT_FOUND"

	// ErrCodeLayoutValidationFailed refuses work on a rejected layout.
	ErrCodeLayoutValidationFailed Code = "LAYOUT_VALIDATION_FAILED"
	ErrCodeExportFailed           Code = "EXPORT_FAILED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Kind groups codes by who has to act on them.
type Kind int

const (
	// KindInternal is a server-side fault. Unknown codes are internal.
	KindInternal Kind = iota
	// KindInput means the caller sent something unusable.
	KindInput
	// KindNotFound means the addressed report or resource does not exist.
	KindNotFound
	// KindRejected means the report exists but its layout did not validate.
	KindRejected
	// KindUnsupported means the operation is not available in this build.
	KindUnsupported
)

var kinds = map[Code]Kind{
	ErrCodeInvalidInput:           KindInput,
	ErrCodeInvalidPayload:         KindInput,
	ErrCodeInvalidPageSize:        KindInput,
	ErrCodeInvalidStyle:           KindInput,
	ErrCodeInvalidIntent:          KindInput,
	ErrCodeInvalidFormat:          KindInput,
	ErrCodeNotFound:               KindNotFound,
	ErrCodeReportNotFound:         KindNotFound,
	ErrCodeLayoutValidationFailed: KindRejected,
	ErrCodeExportFailed:           KindInternal,
	ErrCodeInternal:               KindInternal,
	ErrCodeUnsupported:            KindUnsupported,
}

// Kind returns the group of c.
func (c Code) Kind() Kind { return kinds[c] }

// Error is a failure with a code, a user-facing message and an optional
// cause.
type Error struct {
	Code    Code
	Message string
	// Field is the dotted path of the offending input, when one is known.
	Field string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error that keeps cause in its chain.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Invalid returns an INVALID_PAYLOAD error about field.
func Invalid(field, format string, args ...any) *Error {
	e := New(ErrCodeInvalidPayload, format, args...)
	e.Field = field
	return e
}

// Is reports whether any *Error in err's chain has code.
func Is(err error, code Code) bool {
	for e := first(err); e != nil; e = first(e.Cause) {
		if e.Code == code {
			return true
		}
	}
	return false
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	if e := first(err); e != nil {
		return e.Code
	}
	return ""
}

// FieldOf returns the first field recorded in err's chain.
func FieldOf(err error) string {
	for e := first(err); e != nil; e = first(e.Cause) {
		if e.Field != "" {
			return e.Field
		}
	}
	return ""
}

// UserMessage returns the message without code prefix or cause, suitable
// for showing to the person who made the request.
func UserMessage(err error) string {
	if e := first(err); e != nil {
		return e.Message
	}
	return err.Error()
}

// ExitCode maps err to a process exit status: 0 for nil, 2 when a layout
// was rejected, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case Is(err, ErrCodeLayoutValidationFailed):
		return 2
	default:
		return 1
	}
}

func first(err error) *Error {
	var e *Error
	if err != nil && errors.As(err, &e) {
		return e
	}
	return nil
}
