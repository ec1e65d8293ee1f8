package auth

import (
	"errors"
	"net/http"
)

// Error codes reported by the access control gate.
const (
	CodeHeaderMissing     = "authorization_header_missing"
	CodeMalformedHeader   = "malformed_header"
	CodeInvalidHeader     = "invalid_header"
	CodeTokenExpired      = "token_expired"
	CodeInvalidClaims     = "invalid_claims"
	CodeUnauthorized      = "unauthorized"
	CodeKeySetUnavailable = "key_set_unavailable"
)

// Error is a structured authorization failure.
// Status is the HTTP status the failure maps to.
type Error struct {
	Status      int
	Code        string
	Description string
	// Err is the underlying cause, if any. It is never rendered to clients.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Description + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Description
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

func newError(status int, code, description string, cause error) *Error {
	return &Error{
		Status:      status,
		Code:        code,
		Description: description,
		Err:         cause,
	}
}

// ErrHeaderMissing is returned when no Authorization header is sent.
func ErrHeaderMissing() *Error {
	return newError(http.StatusBadRequest, CodeHeaderMissing, "Authorization header is expected.", nil)
}

// ErrMalformedHeader is returned when the header is not "Bearer <token>".
func ErrMalformedHeader(description string) *Error {
	return newError(http.StatusBadRequest, CodeMalformedHeader, description, nil)
}

// ErrInvalidHeader is returned when the token cannot be decoded or verified.
func ErrInvalidHeader(description string, cause error) *Error {
	return newError(http.StatusUnauthorized, CodeInvalidHeader, description, cause)
}

// ErrTokenExpired is returned for tokens past their exp claim.
func ErrTokenExpired(cause error) *Error {
	return newError(http.StatusUnauthorized, CodeTokenExpired, "Token expired.", cause)
}

// ErrInvalidClaims is returned for audience/issuer mismatches and missing permission sets.
func ErrInvalidClaims(description string, cause error) *Error {
	return newError(http.StatusUnauthorized, CodeInvalidClaims, description, cause)
}

// ErrUnauthorized is returned when the permission set lacks the required permission.
func ErrUnauthorized() *Error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, "Permission not found.", nil)
}

// ErrKeySetUnavailable is returned when the signing keys cannot be fetched.
func ErrKeySetUnavailable(cause error) *Error {
	return newError(http.StatusServiceUnavailable, CodeKeySetUnavailable, "Unable to fetch signing keys.", cause)
}
