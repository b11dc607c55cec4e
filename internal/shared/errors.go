package shared

import (
	"fmt"
	"net/http"
)

// APIError is a request failure with a machine-readable code. Every failure
// surfaced to a client carries one so frontends can branch without parsing
// messages.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Wait holds the remaining cooldown in seconds for rate_limited errors.
	Wait int `json:"wait,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	// ErrUnauthenticated indicates a missing bearer token.
	ErrUnauthenticated = &APIError{Status: http.StatusUnauthorized, Code: "unauthenticated", Message: "Authentication required"}
	// ErrInvalidToken indicates a malformed, expired or tampered token.
	ErrInvalidToken = &APIError{Status: http.StatusUnauthorized, Code: "invalid_token", Message: "Invalid or expired token"}
	// ErrSessionRevoked indicates the token was blacklisted before expiry.
	ErrSessionRevoked = &APIError{Status: http.StatusUnauthorized, Code: "session_revoked", Message: "Session has been revoked"}
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = &APIError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}
	// ErrAccountDisabled indicates the account is administratively disabled.
	ErrAccountDisabled = &APIError{Status: http.StatusForbidden, Code: "account_disabled", Message: "Account disabled"}
	// ErrNotFound indicates resource not found.
	ErrNotFound = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "Record not found"}
	// ErrAlreadyVerified indicates the account already passed verification.
	ErrAlreadyVerified = &APIError{Status: http.StatusConflict, Code: "already_verified", Message: "Account already verified"}
	// ErrInvalidCode indicates a verification code mismatch.
	ErrInvalidCode = &APIError{Status: http.StatusBadRequest, Code: "invalid_code", Message: "Invalid verification code"}
	// ErrCodeExpired indicates the verification code outlived its window.
	ErrCodeExpired = &APIError{Status: http.StatusBadRequest, Code: "expired", Message: "Verification code expired"}
)

// ValidationError builds a 400 for malformed input.
func ValidationError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "validation_error", Message: message}
}

// PermissionDenied builds a 403 naming the missing permission.
func PermissionDenied(permission string) *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Code:    "permission_denied",
		Message: fmt.Sprintf("Permission denied: %s required", permission),
	}
}

// Conflict builds a 409 for duplicate unique fields and similar clashes.
func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "conflict", Message: message}
}

// RateLimited builds a 429 carrying the remaining cooldown in seconds.
func RateLimited(wait int) *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: fmt.Sprintf("Please wait %d seconds before requesting another code", wait),
		Wait:    wait,
	}
}

// ServerError builds a generic 500 that hides internal detail.
func ServerError() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "server_error", Message: "Something went wrong"}
}
