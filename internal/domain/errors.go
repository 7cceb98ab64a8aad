package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists indicates the email is already registered.
	ErrEmailAlreadyExists = errors.New("user with this email already exists")

	// ErrUsernameAlreadyExists indicates the username is taken.
	ErrUsernameAlreadyExists = errors.New("user with this username already exists")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidUsername indicates the username length is out of range.
	ErrInvalidUsername = errors.New("username must be between 3 and 255 characters")

	// ErrInvalidEmail indicates the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword indicates the password is too short.
	ErrInvalidPassword = errors.New("password must be at least 8 characters")

	// ErrInvalidUserID indicates a user identifier is not a well-formed UUID.
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrNegativeBalance indicates an adjustment would drive a balance below zero.
	ErrNegativeBalance = errors.New("balance cannot be negative")

	// ===========================================
	// Transaction Errors
	// ===========================================

	// ErrTransactionNotFound indicates the requested transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionAlreadyExists indicates the transaction ID is taken.
	ErrTransactionAlreadyExists = errors.New("transaction with this ID already exists")

	// ErrInvalidTransactionID indicates the transaction ID is empty or too long.
	ErrInvalidTransactionID = errors.New("transaction ID must be between 1 and 128 characters")

	// ErrSelfTransaction indicates sender and receiver are the same user.
	ErrSelfTransaction = errors.New("sender and receiver cannot be the same user")

	// ErrNegativeAmount indicates a negative amount.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrNegativeFee indicates a negative fee.
	ErrNegativeFee = errors.New("fee cannot be negative")

	// ErrInvalidStatus indicates an unknown transaction status.
	ErrInvalidStatus = errors.New("status must be one of: pending, completed, failed")

	// ErrInvalidStatusTransition indicates the transition is not allowed from the current state.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInsufficientBalance indicates the sender cannot cover amount plus fee.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ===========================================
	// File Errors
	// ===========================================

	// ErrFileNotFound indicates no file is registered under the hash.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileAlreadyExists indicates a file with the same hash is registered.
	ErrFileAlreadyExists = errors.New("file with this hash already exists")

	// ErrFileNotPublished indicates the file is not offered for download.
	ErrFileNotPublished = errors.New("file is not published")

	// ErrInvalidHash indicates the content hash format is invalid.
	ErrInvalidHash = errors.New("hash must be 1-255 characters of letters, digits, '-' or '_'")

	// ErrInvalidFileName indicates the file name is empty or too long.
	ErrInvalidFileName = errors.New("file name must be between 1 and 255 characters")

	// ErrInvalidFileType indicates the file type is empty.
	ErrInvalidFileType = errors.New("file type is required")

	// ErrInvalidFileSize indicates a negative file size.
	ErrInvalidFileSize = errors.New("file size cannot be negative")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the user does not have permission.
	ErrAccessDenied = errors.New("access denied")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., transaction ID, file hash).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
