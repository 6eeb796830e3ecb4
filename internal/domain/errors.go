package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidScenario      = NewDomainError(ErrCodeValidation, "invalid scenario")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid search job status")
	ErrInvalidCategory      = NewDomainError(ErrCodeValidation, "invalid category")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyNarrative       = NewDomainError(ErrCodeValidation, "narrative text is empty")
	ErrUnknownTool          = NewDomainError(ErrCodeNotFound, "unknown tool")
)

// Not found errors
var (
	ErrJobNotFound = NewDomainError(ErrCodeNotFound, "search job not found")
)

// Operation errors
var (
	ErrJobNotRunning = NewDomainError(ErrCodeInvalidOperation, "search job is not running")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Availability errors
var (
	ErrServiceNotConfigured = NewDomainError(ErrCodeUnavailable, "service not configured")
)
