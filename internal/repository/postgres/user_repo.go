package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

const userSelect = `
	SELECT id::text, username, email, password_hash, public_key, balance::text, reputation, created_at, updated_at
	FROM users
`

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var id, balance string

	err := row.Scan(
		&id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PublicKey,
		&balance,
		&user.Reputation,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	if user.Balance, err = parseDecimal(balance); err != nil {
		return nil, fmt.Errorf("invalid balance for user %s: %w", id, err)
	}
	return user, nil
}

func userConflict(constraint string) error {
	if constraint == "users_username_key" {
		return domain.ErrUsernameAlreadyExists
	}
	return domain.ErrEmailAlreadyExists
}

// conflict resolves a unique violation on users. Postgres reports the first
// constraint it checks, so a taken email is looked up and wins over a taken username.
func (r *userRepository) conflict(ctx context.Context, constraint string, user *domain.User) error {
	var taken bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		user.Email, user.ID.String(),
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to classify user conflict: %w", err)
	}
	if taken {
		return domain.ErrEmailAlreadyExists
	}
	return userConflict(constraint)
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, public_key, balance, reputation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PublicKey,
		user.Balance.String(),
		user.Reputation,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok {
			return r.conflict(ctx, constraint, user)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.Pool.QueryRow(ctx, userSelect+" WHERE "+where, arg))
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
	return r.getOne(ctx, "id = $1", id.String())
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, public_key = $5, balance = $6, reputation = $7, updated_at = $8
		WHERE id = $1
	`

	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.Pool.Exec(ctx, query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PublicKey,
		user.Balance.String(),
		user.Reputation,
		user.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok {
			return r.conflict(ctx, constraint, user)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Adjust adds the deltas to a user's balance and reputation under a row lock.
func (r *userRepository) Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	var user *domain.User

	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRow(ctx, userSelect+" WHERE id = $1 FOR UPDATE", id.String()))
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

		_, err = tx.Exec(ctx,
			`UPDATE users SET balance = $2, reputation = $3, updated_at = $4 WHERE id = $1`,
			id.String(), user.Balance.String(), user.Reputation, user.UpdatedAt,
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
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, userSelect+" ORDER BY created_at DESC, id LIMIT $1 OFFSET $2", opts.Limit, opts.Offset)
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
