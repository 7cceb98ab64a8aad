package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(testSecret, time.Minute)
	require.NoError(t, err)
	return tokens
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Minute)
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestTokenService_IssueParse(t *testing.T) {
	tokens := newTestTokens(t)
	userID := uuid.New()

	raw, expiresAt, err := tokens.Issue(userID, "alice@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	ac, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, ac.UserID)
	assert.Equal(t, "alice@example.com", ac.Email)
}

func TestTokenService_Expired(t *testing.T) {
	tokens := newTestTokens(t)
	issued := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issued }

	raw, _, err := tokens.Issue(uuid.New(), "alice@example.com")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_WrongSecret(t *testing.T) {
	tokens := newTestTokens(t)
	other, err := NewTokenService("ffffffffffffffffffffffffffffffff", time.Minute)
	require.NoError(t, err)

	raw, _, err := other.Issue(uuid.New(), "alice@example.com")
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsNonHMAC(t *testing.T) {
	tokens := newTestTokens(t)
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractor(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "cookie", cookie: "def", want: "def"},
		{name: "header wins", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "none", wantErr: ErrMissingToken},
		{name: "empty bearer", header: "Bearer ", wantErr: ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", wantErr: ErrInvalidAuthorizationHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set(AuthorizationHeader, tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}

			got, err := Extractor{}.Extract(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	tokens := newTestTokens(t)
	a := NewAuthenticator(tokens, DefaultCookieName, zerolog.Nop())
	userID := uuid.New()
	valid, _, err := tokens.Issue(userID, "alice@example.com")
	require.NoError(t, err)

	var seen *AuthContext
	protected := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
	})

	t.Run("invalid token is 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(AuthorizationHeader, "Bearer not-a-jwt")
		protected.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cookie token passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: valid})
		protected.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, userID, seen.UserID)
	})
}

func TestOptionalMiddleware(t *testing.T) {
	tokens := newTestTokens(t)
	a := NewAuthenticator(tokens, DefaultCookieName, zerolog.Nop())

	var authenticated bool
	h := a.OptionalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authenticated = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(AuthorizationHeader, "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, authenticated)

	_, err := RequireAuth(r.Context())
	assert.ErrorIs(t, err, ErrAccessDenied)
}
