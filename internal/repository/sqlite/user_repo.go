package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

const userColumns = `id, username, email, password_hash, public_key, balance, reputation, created_at, updated_at`

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var id, balance, createdAt, updatedAt string

	err := row.Scan(
		&id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PublicKey,
		&balance,
		&user.Reputation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	if user.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance for user %s: %w", id, err)
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)

	return user, nil
}

// userConflict maps a unique violation on users to the matching domain error.
// SQLite names only the first index it trips, so a taken email is checked
// after the failed write and reported ahead of a taken username.
func (r *userRepository) userConflict(ctx context.Context, err error, user *domain.User) error {
	var one int
	row := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email = ? AND id != ?`, user.Email, user.ID.String())
	switch lookupErr := row.Scan(&one); {
	case lookupErr == nil:
		return domain.ErrEmailAlreadyExists
	case !isNoRows(lookupErr):
		return fmt.Errorf("failed to classify user conflict: %w", lookupErr)
	}
	if uniqueViolationOn(err, "users.username") {
		return domain.ErrUsernameAlreadyExists
	}
	return domain.ErrEmailAlreadyExists
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PublicKey,
		user.Balance.String(),
		user.Reputation,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r.userConflict(ctx, err, user)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id.String())
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = ?, email = ?, password_hash = ?, public_key = ?, balance = ?, reputation = ?, updated_at = ?
		WHERE id = ?
	`

	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PublicKey,
		user.Balance.String(),
		user.Reputation,
		formatTime(user.UpdatedAt),
		user.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r.userConflict(ctx, err, user)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Adjust adds the deltas to a user's balance and reputation in one transaction.
func (r *userRepository) Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	var user *domain.User

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
		if err != nil {
			if isNoRows(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		next := user.Balance.Add(balanceDelta)
		if next.IsNegative() {
			return domain.ErrNegativeBalance
		}
		user.Balance = next
		user.Reputation += reputationDelta
		user.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET balance = ?, reputation = ?, updated_at = ? WHERE id = ?`,
			user.Balance.String(), user.Reputation, formatTime(user.UpdatedAt), id.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to adjust user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// List returns all users with pagination.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
