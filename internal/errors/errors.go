// Package errors provides the API error taxonomy shared by every handler.
package errors

import (
	"fmt"
	"net/http"
)

// APIError is rendered as {"detail": Message, "code": Code} with StatusCode.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"detail"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is matches on code and status so copies made by WithMessage still match their sentinel.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
	}
}

var (
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Not authenticated",
		StatusCode: http.StatusUnauthorized,
	}

	ErrTokenExpired = &APIError{
		Code:       "token_expired",
		Message:    "Token expired",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidToken = &APIError{
		Code:       "invalid_token",
		Message:    "Invalid token",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &APIError{
		Code:       "invalid_credentials",
		Message:    "Invalid credentials",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &APIError{
		Code:       "forbidden",
		Message:    "You don't have permission to perform this action",
		StatusCode: http.StatusForbidden,
	}

	// ErrVerificationRequired guards discovery and swiping for unverified profiles.
	ErrVerificationRequired = &APIError{
		Code:       "verification_required",
		Message:    "Verification required. Please verify your profile to continue",
		StatusCode: http.StatusForbidden,
	}

	ErrBlocked = &APIError{
		Code:       "blocked",
		Message:    "This user is not available",
		StatusCode: http.StatusForbidden,
	}

	ErrNotParticipant = &APIError{
		Code:       "not_participant",
		Message:    "You are not part of this match",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrConflict uses 400, the status clients already handle for duplicates.
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Resource already exists",
		StatusCode: http.StatusBadRequest,
	}

	ErrQuotaExceeded = &APIError{
		Code:       "quota_exceeded",
		Message:    "Daily limit reached",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("%s: %s", field, message),
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error for a specific resource type.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error with a custom message.
func NewConflictError(message string) *APIError {
	return ErrConflict.WithMessage(message)
}

// NewForbiddenError creates a forbidden error with a custom message.
func NewForbiddenError(message string) *APIError {
	return ErrForbidden.WithMessage(message)
}

// NewQuotaError reports an exhausted daily counter, e.g. "swipe".
func NewQuotaError(kind string) *APIError {
	return ErrQuotaExceeded.WithMessage(fmt.Sprintf("Daily %s limit reached", kind))
}

// InvalidArgument creates a bad request error.
func InvalidArgument(msg string) *APIError {
	return ErrBadRequest.WithMessage(msg)
}
