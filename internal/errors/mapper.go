package errors

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Map converts repo/infra errors into API errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict

	case errors.Is(err, context.DeadlineExceeded):
		return ErrServiceUnavailable.WithMessage("request timed out")

	case errors.Is(err, context.Canceled):
		return ErrBadRequest.WithMessage("request was canceled")

	default:
		return ErrInternal
	}
}

// IsInternal reports whether err maps to a 5xx response.
func IsInternal(err error) bool {
	return Map(err).StatusCode >= 500
}
