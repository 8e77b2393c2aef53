package errors

import (
	"fmt"
	"strings"
)

// Error code constants.
// Codes are stable identifiers for API clients; messages are English only.

// Form lifecycle codes.
const (
	CodeFormNotFound                 = "FORM_NOT_FOUND"
	CodeFormArchivedImmutable        = "FORM_ARCHIVED_IMMUTABLE"
	CodeFormArchiveForbidden         = "FORM_ARCHIVE_FORBIDDEN"
	CodeFormPublishedStatusImmutable = "FORM_PUBLISHED_STATUS_IMMUTABLE"
	CodeFormPublishedImmutable       = "FORM_PUBLISHED_IMMUTABLE"
	CodeFormStatusInvalid            = "FORM_STATUS_INVALID"
	CodeFormPersistenceFailed        = "FORM_PERSISTENCE_FAILED"
	CodeFormCodeTaken                = "FORM_CODE_TAKEN"
	CodeFormSyncFailed               = "FORM_SYNC_FAILED"
	CodeFormCopyFailed               = "FORM_COPY_FAILED"
	CodeFormPublishFailed            = "FORM_PUBLISH_FAILED"
	CodeFormNotPublished             = "FORM_NOT_PUBLISHED"
)

// Field codes.
const (
	CodeFieldNotFound    = "FIELD_NOT_FOUND"
	CodeFieldTypeUnknown = "FIELD_TYPE_UNKNOWN"
	CodeValidatorUnknown = "VALIDATOR_UNKNOWN"
)

// Submission codes.
const (
	CodeInvalidFields = "INVALID_FIELDS"
	CodeFieldRequired = "FIELD_REQUIRED"
	CodeFieldInvalid  = "FIELD_INVALID"
)

// Request/auth codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeAuthFailed          = "AUTH_FAILED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeOpenAPIRoute        = "OPENAPI_ROUTE_INVALID"
	CodeOpenAPIRequest      = "OPENAPI_REQUEST_INVALID"
)

// Convenience constructors using predefined codes.

func ErrFormNotFound(id int64) *AppError {
	return NotFound(CodeFormNotFound, fmt.Sprintf("form %d not found", id))
}

func ErrFormArchivedImmutable(id int64) *AppError {
	return Forbidden(CodeFormArchivedImmutable, fmt.Sprintf("form %d is archived and cannot be changed", id))
}

// ErrFormPublishedImmutable rejects an in-place change of a published
// form. Saving the form forks a new version instead.
func ErrFormPublishedImmutable(id int64) *AppError {
	return Forbidden(CodeFormPublishedImmutable, fmt.Sprintf("form %d is published and cannot be changed in place", id))
}

func ErrFormArchiveForbidden() *AppError {
	return Forbidden(CodeFormArchiveForbidden, "a form cannot be archived directly")
}

func ErrFormPublishedStatusImmutable(id int64) *AppError {
	return Forbidden(CodeFormPublishedStatusImmutable, fmt.Sprintf("status of published form %d cannot be changed", id))
}

// ErrInvalidFields reports a submission whose values failed the required
// check or a validator.
func ErrInvalidFields(fieldErrors []FieldError) *AppError {
	names := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		names = append(names, fe.Field)
	}
	return Validation(CodeInvalidFields, "invalid fields: "+strings.Join(names, ", ")).
		WithFieldErrors(fieldErrors)
}
