package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeIntegrity    = "INTEGRITY_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewIntegrityError wraps a uniqueness or foreign-key violation reported by the store.
func NewIntegrityError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeIntegrity,
		Message: message,
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// CodeOf returns the AppError code found in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return err != nil && CodeOf(err) == CodeValidation }

// IsIntegrity reports whether err is a store constraint violation.
func IsIntegrity(err error) bool { return err != nil && CodeOf(err) == CodeIntegrity }

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return err != nil && CodeOf(err) == CodeUnauthorized }

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool { return err != nil && CodeOf(err) == CodeNotFound }
