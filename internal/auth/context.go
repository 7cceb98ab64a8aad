package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthContext is the authenticated identity of a request.
type AuthContext struct {
	// UserID is the token subject.
	UserID uuid.UUID

	// Email is the address the token was issued for.
	Email string

	// ExpiresAt is when the token stops being accepted.
	ExpiresAt time.Time
}

// WithContext returns a copy of ctx carrying ac.
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

// FromContext retrieves the AuthContext from a request context.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return ac, ok && ac != nil
}

// RequireAuth is a helper to get the auth context or return an error.
func RequireAuth(ctx context.Context) (*AuthContext, error) {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil, ErrAccessDenied
	}
	return ac, nil
}
