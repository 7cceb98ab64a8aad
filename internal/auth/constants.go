// Package auth issues and verifies the JWT session tokens of Squid Coin.
package auth

import "time"

const (
	// AuthorizationHeader is the header carrying "Bearer <token>".
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// DefaultCookieName is the login cookie used when none is configured.
	DefaultCookieName = "token"

	// DefaultTokenTTL is the lifetime of an issued token.
	DefaultTokenTTL = 5 * time.Minute

	// MinSecretLength is the shortest accepted HMAC secret in bytes.
	MinSecretLength = 32
)

// contextKey is an unexported type to avoid collisions in context values.
type contextKey string

// AuthContextKey is the context key for the request's AuthContext.
const AuthContextKey contextKey = "auth"
