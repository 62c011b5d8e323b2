package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/voltlab/voltlab-api/internal/admission"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/service/auth"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/store"
	"github.com/voltlab/voltlab-api/internal/verification"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrAnimationNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrPhoneExists):
		return http.StatusConflict

	// Throttling
	case errors.Is(err, verification.ErrRateLimited),
		errors.Is(err, membership.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	// Capacity exhausted
	case errors.Is(err, admission.ErrTooBusy):
		return http.StatusServiceUnavailable

	// Bad request errors
	case errors.Is(err, verification.ErrCodeNotFound),
		errors.Is(err, verification.ErrCodeMismatch),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidPhoneNumber),
		errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Invalid credentials"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrAnimationNotFound):
		return "Animation not found"

	case errors.Is(err, store.ErrPhoneExists):
		return "Phone number already registered"

	case errors.Is(err, verification.ErrRateLimited):
		return "Please wait before requesting another code"

	case errors.Is(err, membership.ErrQuotaExceeded):
		return "Daily analysis limit reached"

	case errors.Is(err, admission.ErrTooBusy):
		return "Server is busy, please try again later"

	case errors.Is(err, verification.ErrCodeNotFound),
		errors.Is(err, verification.ErrCodeMismatch):
		return "Invalid or expired verification code"

	case errors.Is(err, domain.ErrInvalidPhoneNumber):
		return "Invalid phone number"

	case errors.Is(err, domain.ErrInvalidPassword),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'LoginRequest.PhoneNumber' Error:Field
		// validation for 'PhoneNumber' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return "Invalid " + field + ": " + getValidationTagMessage(tag)
				}
				return "Invalid " + field
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
