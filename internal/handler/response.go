package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/service"
)

// genericErrorMessage is the body of every 500 response.
const genericErrorMessage = "Something went wrong!"

// defaultMaxBodySize caps request bodies when the router is not configured.
const defaultMaxBodySize = 1 << 20

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a JSON body carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// errorStatus classifies service and domain errors.
// Order matters: DomainError wrappers unwrap to the sentinels below.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInternalError):
		return http.StatusInternalServerError

	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidTransactionID),
		errors.Is(err, domain.ErrSelfTransaction),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrNegativeFee),
		errors.Is(err, domain.ErrNegativeBalance),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidHash),
		errors.Is(err, domain.ErrInvalidFileName),
		errors.Is(err, domain.ErrInvalidFileType),
		errors.Is(err, domain.ErrInvalidFileSize):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrFileNotPublished):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrFileNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrUsernameAlreadyExists),
		errors.Is(err, domain.ErrTransactionAlreadyExists),
		errors.Is(err, domain.ErrFileAlreadyExists),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrTransactionBusy):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests

	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError maps err to a status and writes it.
// Internal errors are logged and never leak their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, genericErrorMessage)
		return
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	writeError(w, status, err.Error())
}

// errBadRequest marks decode and validation failures.
type errBadRequest struct {
	msg string
}

func (e *errBadRequest) Error() string { return e.msg }

// decodeJSON reads a JSON body into dst and validates its struct tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, dst interface{}) error {
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &errBadRequest{msg: "request body is required"}
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &errBadRequest{msg: "request body too large"}
		}
		return &errBadRequest{msg: "invalid JSON body"}
	}

	if err := validate.Struct(dst); err != nil {
		return &errBadRequest{msg: validationMessage(err)}
	}
	return nil
}

// validationMessage renders the first failed rule as "field: rule".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", field)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// writeRequestError writes decode errors as 400 and anything else through the table.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var bad *errBadRequest
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.msg)
		return
	}
	writeServiceError(w, r, err)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &errBadRequest{msg: name + " must be a non-negative integer"}
	}
	return n, nil
}

// pageParams reads limit and offset.
func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func setTotalCount(w http.ResponseWriter, total int64) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}
