package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kind codes surfaced to transports. Security decisions are never
// downgraded to a generic failure: callers and audits depend on the kind.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeAccountSuspended  = "ACCOUNT_SUSPENDED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidCode       = "INVALID_CODE"
	CodeInvalidBackupCode = "INVALID_BACKUP_CODE"
	CodeAlreadyEnabled    = "ALREADY_ENABLED"
	CodeNotStarted        = "NOT_STARTED"
	CodeEmailTaken        = "EMAIL_TAKEN"
	CodeBadRequest        = "BAD_REQUEST"
	CodeRateLimited       = "RATE_LIMITED"
	CodeServerError       = "SERVER_ERROR"
)

// AuthError is a typed authentication/authorization failure raised at the
// point of detection and mapped to an HTTP status by the transport layer.
type AuthError struct {
	Code    string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is match on the kind, so wrapped and reworded instances of
// the same kind compare equal to the predefined sentinels.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

var (
	ErrUnauthenticated = &AuthError{
		Code:    CodeUnauthenticated,
		Status:  http.StatusUnauthorized,
		Message: "authentication required",
	}

	ErrAccountSuspended = &AuthError{
		Code:    CodeAccountSuspended,
		Status:  http.StatusForbidden,
		Message: "account is suspended",
	}

	ErrForbidden = &AuthError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: "insufficient role",
	}

	ErrInvalidCode = &AuthError{
		Code:    CodeInvalidCode,
		Status:  http.StatusBadRequest,
		Message: "invalid verification code",
	}

	ErrInvalidBackupCode = &AuthError{
		Code:    CodeInvalidBackupCode,
		Status:  http.StatusBadRequest,
		Message: "invalid backup code",
	}

	ErrAlreadyEnabled = &AuthError{
		Code:    CodeAlreadyEnabled,
		Status:  http.StatusBadRequest,
		Message: "two-factor authentication is already enabled",
	}

	ErrNotStarted = &AuthError{
		Code:    CodeNotStarted,
		Status:  http.StatusBadRequest,
		Message: "two-factor setup has not been started",
	}

	ErrEmailTaken = &AuthError{
		Code:    CodeEmailTaken,
		Status:  http.StatusConflict,
		Message: "email address is already registered",
	}
)

// forbiddenError builds a Forbidden failure whose message names both the
// required and the actual role.
func forbiddenError(required, actual string) *AuthError {
	return &AuthError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("requires role %q, user has role %q", required, actual),
	}
}
