package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so sentinel comparisons work on
// errors created with a more specific message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeStorage       = "STORAGE_ERROR"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeLoad          = "LOAD_ERROR"
)

// Common domain errors
var (
	ErrValidation    = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict      = NewDomainError(CodeConflict, "Resource is still referenced")
	ErrStorage       = NewDomainError(CodeStorage, "Storage operation failed")
	ErrQuotaExceeded = NewDomainError(CodeQuotaExceeded, "Storage quota exceeded")
	ErrLoad          = NewDomainError(CodeLoad, "Persisted data could not be loaded")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not-found error with a specific message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// HasCode reports whether err is a DomainError carrying the given code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
