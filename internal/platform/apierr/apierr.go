package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized      = "unauthorized"
	CodeAccessDenied      = "access_denied"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeValidation        = "validation_error"
	CodeNoWorkAvailable   = "no_work_available"
	CodeInternal          = "internal_error"
)

// Error is the error type surfaced to callers. Message is safe to show to a
// user; Err keeps the underlying cause for logs and errors.Is/As.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	e := &Error{Status: status, Code: code, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

func newf(status int, code string, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Status: status, Code: code, Message: msg, Err: errors.New(msg)}
}

func Unauthorized(format string, args ...any) *Error {
	return newf(http.StatusUnauthorized, CodeUnauthorized, format, args...)
}

func AccessDenied(format string, args ...any) *Error {
	return newf(http.StatusForbidden, CodeAccessDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(http.StatusNotFound, CodeNotFound, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return newf(http.StatusConflict, CodeInvalidTransition, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newf(http.StatusUnprocessableEntity, CodeValidation, format, args...)
}

// Internal wraps a storage or other unexpected failure. The cause is kept for
// logging but the message never carries driver text.
func Internal(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "storage failure", Err: err}
}

// From returns err as an *Error, classifying anything unknown as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// CodeOf reports the taxonomy code of err, or "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return From(err).Code
}

func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
