package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Extractor pulls the session token out of a request.
// The Authorization header wins over the login cookie.
type Extractor struct {
	CookieName string
}

// Extract returns the raw token. ErrMissingToken means no credential was sent.
func (e Extractor) Extract(r *http.Request) (string, error) {
	if header := r.Header.Get(AuthorizationHeader); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", ErrInvalidAuthorizationHeader
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}

	name := e.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingToken
	}
	return cookie.Value, nil
}

// Authenticator derives the AuthContext of a request once and stores it in the context.
type Authenticator struct {
	tokens    *TokenService
	extractor Extractor
	logger    zerolog.Logger
}

// NewAuthenticator creates an Authenticator reading the named cookie as the fallback transport.
func NewAuthenticator(tokens *TokenService, cookieName string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		tokens:    tokens,
		extractor: Extractor{CookieName: cookieName},
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate resolves the request's identity.
func (a *Authenticator) Authenticate(r *http.Request) (*AuthContext, error) {
	raw, err := a.extractor.Extract(r)
	if err != nil {
		return nil, err
	}
	return a.tokens.Parse(raw)
}

// Middleware rejects requests without a valid token.
// Missing token is 401, invalid or expired token is 403.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := a.Authenticate(r)
		if err != nil {
			a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
	})
}

// OptionalMiddleware attaches the AuthContext when a valid token is present
// and never rejects the request.
func (a *Authenticator) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithContext(r.Context(), ac))
		}
		next.ServeHTTP(w, r)
	})
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	message := ErrInvalidToken.Error()
	if status == http.StatusUnauthorized {
		message = ErrMissingToken.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
