package auth

import (
	"errors"
	"net/http"
)

// Authentication errors.
var (
	// ErrMissingToken indicates neither the Authorization header nor the cookie carried a token.
	ErrMissingToken = errors.New("authentication required")

	// ErrInvalidToken indicates the token is malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is not a Bearer token.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrSecretTooShort indicates the signing secret is below MinSecretLength.
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")

	// ErrAccessDenied indicates the request carries no authenticated user.
	ErrAccessDenied = errors.New("access denied")
)

// StatusCode maps an authentication error to its HTTP status.
// A missing token is 401. Everything else is 403.
func StatusCode(err error) int {
	if errors.Is(err, ErrMissingToken) {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}
