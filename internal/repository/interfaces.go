// Package repository defines data access interfaces for Squid Coin.
// These interfaces abstract database operations, allowing for different implementations
// (SQLite, PostgreSQL, mocks for testing) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	// Returns domain.ErrEmailAlreadyExists or domain.ErrUsernameAlreadyExists
	// when a unique index rejects the row.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates the mutable fields of an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Adjust atomically adds balanceDelta and reputationDelta to a user.
	// Returns domain.ErrNegativeBalance if the balance would drop below zero.
	Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error)

	// List returns users with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Transaction Repository
// =============================================================================

// TransactionRepository defines the interface for transaction data access.
type TransactionRepository interface {
	// Create inserts a new transaction.
	// Returns domain.ErrTransactionAlreadyExists on a duplicate ID and
	// domain.ErrUserNotFound when sender or receiver does not exist.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction by its ID.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// ListByUser returns transactions where the user is sender or receiver,
	// newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) (*ListResult[domain.Transaction], error)

	// MarkFailed moves a pending transaction to failed.
	// Returns domain.ErrInvalidStatusTransition if it is no longer pending.
	MarkFailed(ctx context.Context, id string) (*domain.Transaction, error)

	// Settle marks a pending transaction completed and moves the funds in one
	// database transaction: the sender is debited amount+fee and the receiver
	// is credited amount.
	// Returns domain.ErrInsufficientBalance if the sender cannot pay.
	Settle(ctx context.Context, id string) (*domain.Transaction, error)

	// ListStalePending returns up to limit pending transactions created before the cutoff.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error)
}

// =============================================================================
// File Repository
// =============================================================================

// FileRepository defines the interface for file registry access.
type FileRepository interface {
	// Create registers a new file.
	// Returns domain.ErrFileAlreadyExists on a duplicate hash.
	Create(ctx context.Context, file *domain.FileData) error

	// GetByHash retrieves a file by content hash.
	GetByHash(ctx context.Context, hash string) (*domain.FileData, error)

	// List returns registered files, newest first.
	List(ctx context.Context, opts FileListOptions) (*ListResult[domain.FileData], error)

	// Update updates the mutable fields of a file.
	Update(ctx context.Context, file *domain.FileData) error

	// DeleteByHash removes a file record.
	// Returns domain.ErrFileNotFound if nothing was deleted.
	DeleteByHash(ctx context.Context, hash string) error
}

// FileListOptions contains options for listing files.
type FileListOptions struct {
	ListOptions

	// PublishedOnly restricts the result to published files.
	PublishedOnly bool
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
