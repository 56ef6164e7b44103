// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Map converts repo/infra errors into service errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) *Error {
	if err == nil {
		return nil
	}

	var svc *Error
	if errors.As(err, &svc) {
		return svc
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound.Wrap(err)

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict.Wrap(err)

	case errors.Is(err, context.DeadlineExceeded):
		return ErrInternal.WithMessage("request timed out").Wrap(err)

	case errors.Is(err, context.Canceled):
		return ErrInternal.WithMessage("request was canceled").Wrap(err)

	default:
		// never expose internal detail to the caller
		return ErrInternal.Wrap(err)
	}
}

// InvalidArgument creates a validation error with a custom message.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string, fields ...string) *Error {
	return ErrValidation.WithMessage(msg).WithFields(fields...)
}

// HTTPStatus returns the status code a transport should answer with.
func HTTPStatus(err error) int {
	e := Map(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindQuota:
		return http.StatusForbidden
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
