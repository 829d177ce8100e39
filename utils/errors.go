package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds
const (
	KindValidation          = "VALIDATION"
	KindUnauthorized        = "UNAUTHORIZED"
	KindForbidden           = "FORBIDDEN"
	KindNotFound            = "NOT_FOUND"
	KindDuplicateCode       = "DUPLICATE_CODE"
	KindConflict            = "CONFLICT"
	KindOrderCreationFailed = "ORDER_CREATION_FAILED"
	KindNotificationFailed  = "NOTIFICATION_FAILED"
	KindInternal            = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationFailed creates a 400 error for missing or malformed input
func ValidationFailed(message string) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, message, nil)
}

// UnauthorizedError creates a 401 Unauthorized error
func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(http.StatusUnauthorized, KindUnauthorized, message, err)
}

// ForbiddenError creates a 403 Forbidden error
func ForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, KindForbidden, message, nil)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, KindNotFound, message, err)
}

// DuplicateCodeError creates a 400 error for unique constraint violations
func DuplicateCodeError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, KindDuplicateCode, message, err)
}

// ConflictError creates a 409 Conflict error
func ConflictError(message string, err error) *AppError {
	return NewAppError(http.StatusConflict, KindConflict, message, err)
}

// OrderCreationFailedError wraps the cause of an aborted order transaction
func OrderCreationFailedError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, KindOrderCreationFailed, "Failed to create order", err)
}

// NotificationFailedError wraps a failed notification delivery. It is only logged.
func NotificationFailedError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, KindNotificationFailed, "Failed to send notification", err)
}

// InternalError creates a 500 error carrying the underlying cause
func InternalError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, message, err)
}

// GetAppError returns the first AppError in err's chain, if any
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsKind reports whether err carries an AppError of the given kind
func IsKind(err error, kind string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind == kind
	}
	return false
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsKind(err, KindValidation)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return IsKind(err, KindForbidden)
}
