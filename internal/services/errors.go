package services

import (
	"errors"

	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

// Error kinds matched by handlers with errors.Is.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
)

// BusinessError carries a client-facing message plus optional details.
type BusinessError struct {
	Kind    error
	Message string
	Details []string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Kind
}

func NewValidationError(message string, details ...string) *BusinessError {
	return &BusinessError{Kind: ErrValidationFailed, Message: message, Details: details}
}

func NewNotFoundError(message string) *BusinessError {
	return &BusinessError{Kind: ErrNotFound, Message: message}
}

func NewConflictError(message string) *BusinessError {
	return &BusinessError{Kind: ErrConflict, Message: message}
}

func NewUnauthorizedError(message string) *BusinessError {
	return &BusinessError{Kind: ErrUnauthorized, Message: message}
}

// FromValidation wraps validator failures as a "Validation failed" error.
func FromValidation(errs validator.ValidationErrors) *BusinessError {
	return NewValidationError("Validation failed", errs.Messages()...)
}
