package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/squidcoin/internal/auth"
	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/service"
)

// CookieConfig describes the login cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// UserHandler serves signup, login and session endpoints.
type UserHandler struct {
	users   *service.UserService
	authn   *auth.Authenticator
	cookie  CookieConfig
	maxBody int64
	logger  zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, authn *auth.Authenticator, cookie CookieConfig, maxBody int64, logger zerolog.Logger) *UserHandler {
	if cookie.Name == "" {
		cookie.Name = auth.DefaultCookieName
	}
	return &UserHandler{
		users:   users,
		authn:   authn,
		cookie:  cookie,
		maxBody: maxBody,
		logger:  logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers user routes.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/users/signup", h.handleSignup)
	r.Post("/api/users/login", h.handleLogin)
	r.Post("/api/users/logout", h.handleLogout)

	r.With(h.authn.Middleware).Get("/api/users/me", h.handleMe)
	r.With(h.authn.OptionalMiddleware).Get("/api/auth/status", h.handleStatus)
}

type signupRequest struct {
	Name     string `json:"name" validate:"required_without=Username,max=255"`
	Username string `json:"username" validate:"max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signupResponse struct {
	Message    string       `json:"message"`
	User       *domain.User `json:"user"`
	PrivateKey string       `json:"privateKey"`
}

func (h *UserHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	username := req.Username
	if strings.TrimSpace(username) == "" {
		username = req.Name
	}

	out, err := h.users.Signup(r.Context(), service.SignupInput{
		Username: username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailAlreadyExists):
			writeError(w, http.StatusBadRequest, "User with this email already exists")
		case errors.Is(err, domain.ErrUsernameAlreadyExists):
			writeError(w, http.StatusBadRequest, "User with this username already exists")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Message:    "User created successfully",
		User:       out.User,
		PrivateKey: out.PrivateKey,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message   string       `json:"message"`
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	out, err := h.users.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    out.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  out.ExpiresAt,
		MaxAge:   int(time.Until(out.ExpiresAt) / time.Second),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		User:      out.User,
		Token:     out.Token,
		ExpiresAt: out.ExpiresAt,
	})
}

func (h *UserHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Clear login cookie
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type statusResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user,omitempty"`
}

func (h *UserHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{IsAuthenticated: false})
		return
	}

	user, err := h.users.GetByID(r.Context(), ac.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeJSON(w, http.StatusOK, statusResponse{IsAuthenticated: false})
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{IsAuthenticated: true, User: user})
}
