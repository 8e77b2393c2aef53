// Package errors provides the structured application error used across the
// form builder. Every error returned to a caller of the form services is
// either an *AppError or wraps one.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure scenarios. Storage code returns these
// and the service layer turns them into AppErrors with a form specific code.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// Kind classifies an AppError independently of its code.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindForbidden          Kind = "Forbidden"
	KindValidationFailure  Kind = "ValidationFailure"
	KindPersistenceFailure Kind = "PersistenceFailure"
	KindSyncFailure        Kind = "SyncFailure"
	KindUnauthorized       Kind = "Unauthorized"
	KindInternal           Kind = "Internal"
)

// AppError is a structured application error with HTTP status and error code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "FORM_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	Kind Kind `json:"-"`

	// HTTPStatus is the corresponding HTTP status code.
	HTTPStatus int `json:"-"`

	// Details accumulates the individual messages of a failed multi-step
	// operation, in the order they were produced.
	Details []string `json:"details,omitempty"`

	// FieldErrors carries per-field failures of a submission.
	FieldErrors []FieldError `json:"field_errors,omitempty"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// FieldError describes a field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       kind,
		HTTPStatus: statusFor(kind),
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, kind Kind, code, message string) *AppError {
	e := New(kind, code, message)
	e.Err = err
	if err != nil {
		e.Details = []string{err.Error()}
	}
	return e
}

// WithDetails appends messages to Details.
func (e *AppError) WithDetails(details ...string) *AppError {
	if e == nil {
		return e
	}
	e.Details = append(e.Details, details...)
	return e
}

// WithFieldErrors attaches field-level errors to the AppError.
func (e *AppError) WithFieldErrors(fieldErrors []FieldError) *AppError {
	if e == nil || len(fieldErrors) == 0 {
		return e
	}
	e.FieldErrors = fieldErrors
	return e
}

func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message)
}

func Forbidden(code, message string) *AppError {
	return New(KindForbidden, code, message)
}

func Validation(code, message string) *AppError {
	return New(KindValidationFailure, code, message)
}

func Persistence(err error, code, message string) *AppError {
	return Wrap(err, KindPersistenceFailure, code, message)
}

func Unauthorized(code, message string) *AppError {
	return New(KindUnauthorized, code, message)
}

func Internal(code, message string) *AppError {
	return New(KindInternal, code, message)
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if appErr, ok := IsAppError(err); ok && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err matches target. Re-exported so callers do not need
// to import both this package and the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func statusFor(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailure:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPersistenceFailure:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
