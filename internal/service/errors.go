// Package service provides the business logic of Squid Coin.
package service

import "errors"

// Common service errors.
var (
	// ErrTooManyAttempts indicates login is throttled for the email.
	ErrTooManyAttempts = errors.New("too many failed login attempts, try again later")

	// ErrMissingField indicates a required request field was absent.
	ErrMissingField = errors.New("missing required field")

	// ErrTransactionBusy indicates another status change of the transaction is in progress.
	ErrTransactionBusy = errors.New("transaction is being updated, try again")

	// ErrStorageUnavailable indicates object storage is not configured.
	ErrStorageUnavailable = errors.New("object storage is not available")

	// ErrInternalError wraps infrastructure failures.
	ErrInternalError = errors.New("internal server error")
)
