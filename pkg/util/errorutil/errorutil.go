package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason codes carried by DomainError.
const (
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeInvalidStateTransition   = "INVALID_STATE_TRANSITION"
	CodeSignatureAlreadyCaptured = "SIGNATURE_ALREADY_CAPTURED"
	CodeScopeNotAllowed          = "SCOPE_NOT_ALLOWED"
	CodeConcurrencyConflict      = "CONCURRENCY_CONFLICT"
	CodeConflict                 = "CONFLICT"
	CodeNotFound                 = "NOT_FOUND"
	CodeInternal                 = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Retryable  bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidTransition reports a lifecycle operation attempted from a state that does not allow it.
func NewInvalidTransition(operation, currentStatus string) error {
	return NewDomainError(CodeInvalidStateTransition,
		fmt.Sprintf("cannot %s work order in status %s", operation, currentStatus),
		http.StatusConflict,
		map[string]any{
			"operation":      operation,
			"current_status": currentStatus,
		})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewConcurrencyConflict signals a lost optimistic-concurrency race; callers may reload and retry.
func NewConcurrencyConflict(resource string, details map[string]any) error {
	return &DomainError{
		Code:       CodeConcurrencyConflict,
		Message:    fmt.Sprintf("%s was modified concurrently", resource),
		HTTPStatus: http.StatusConflict,
		Details:    details,
		Retryable:  true,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given reason code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry the failed operation unchanged.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}
