package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application.
// Business-rule failures are returned as marked errors, never as panics,
// so callers match on the sentinel rather than parse message strings.
var (
	ErrNotFound            = errors.New(ErrCodeNotFound)
	ErrAlreadyExists       = errors.New(ErrCodeAlreadyExists)
	ErrVersionConflict     = errors.New(ErrCodeVersionConflict)
	ErrValidation          = errors.New(ErrCodeValidation)
	ErrInvalidTransition   = errors.New(ErrCodeInvalidTransition)
	ErrPrivilegeNotGranted = errors.New(ErrCodePrivilegeNotGranted)
	ErrQuotaExceeded       = errors.New(ErrCodeQuotaExceeded)
	ErrPermissionDenied    = errors.New(ErrCodePermissionDenied)
	ErrDatabase            = errors.New(ErrCodeDatabase)
	ErrSystem              = errors.New(ErrCodeSystemError)

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:            http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrVersionConflict:     http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrInvalidTransition:   http.StatusConflict,
		ErrPrivilegeNotGranted: http.StatusForbidden,
		ErrQuotaExceeded:       http.StatusTooManyRequests,
		ErrPermissionDenied:    http.StatusForbidden,
		ErrDatabase:            http.StatusInternalServerError,
		ErrSystem:              http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeVersionConflict     = "version_conflict"
	ErrCodeValidation          = "validation_error"
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodePrivilegeNotGranted = "privilege_not_granted"
	ErrCodeQuotaExceeded       = "quota_exceeded"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodeDatabase            = "database_error"
	ErrCodeSystemError         = "system_error"
)

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidTransition checks if an error is an invalid transition error
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsPrivilegeNotGranted checks if an error is a privilege not granted error
func IsPrivilegeNotGranted(err error) bool {
	return errors.Is(err, ErrPrivilegeNotGranted)
}

// IsQuotaExceeded checks if an error is a quota exceeded error
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsSystemError checks if an error is a systemic failure (store or catalog
// unreachable) as opposed to a business-rule rejection. Systemic failures
// abort batch operations instead of being folded into per-item results.
func IsSystemError(err error) bool {
	return errors.Is(err, ErrDatabase) || errors.Is(err, ErrSystem)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
