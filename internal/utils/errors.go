package utils

import (
	"errors"
	"fmt"
)

// Error kinds shared across services. Match them with errors.Is.
var (
	ErrValidation         = errors.New("VALIDATION_ERROR")
	ErrPartialWrite       = errors.New("PARTIAL_WRITE_FAILURE")
	ErrNotFound           = errors.New("NOT_FOUND")
	ErrScaleLimitExceeded = errors.New("SCALE_LIMIT_EXCEEDED")
	ErrConflict           = errors.New("CONFLICT")
)

// AppError is a typed application error. Kind is one of the sentinel kinds above,
// Code is a machine-readable code for API clients and Message is display text.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is reports whether target is the error's kind.
func (e *AppError) Is(target error) bool {
	return target == e.Kind
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ValidationError builds a validation error. Validation errors are raised before
// any side effect happens.
func ValidationError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError builds a not-found error for the named resource.
func NotFoundError(resource, id string) *AppError {
	return &AppError{
		Kind:    ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// ScaleLimitError builds a scale-limit error.
func ScaleLimitError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrScaleLimitExceeded, Code: code, Message: fmt.Sprintf(format, args...)}
}

// PartialWriteError wraps the cause of an aborted multi-document write.
func PartialWriteError(message string, cause error) *AppError {
	return &AppError{Kind: ErrPartialWrite, Code: "PARTIAL_WRITE_FAILURE", Message: message, Cause: cause}
}

// ConflictError builds a conflict error (duplicate request, locked resource, duplicate sku).
func ConflictError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the machine-readable code of err, or fallback when err is not an *AppError.
func ErrorCode(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return fallback
}
