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

const transactionColumns = `transaction_id, sender_id, receiver_id, amount, fee, file_name, file_id, file_size, status, timestamp, updated_at`

// transactionRepository implements repository.TransactionRepository for SQLite.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new SQLite transaction repository.
func NewTransactionRepository(db *DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var sender, receiver, amount, fee, status, ts, updatedAt string

	err := row.Scan(
		&t.TransactionID,
		&sender,
		&receiver,
		&amount,
		&fee,
		&t.FileName,
		&t.FileID,
		&t.FileSize,
		&status,
		&ts,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.SenderID, err = uuid.Parse(sender); err != nil {
		return nil, fmt.Errorf("invalid sender id %q: %w", sender, err)
	}
	if t.ReceiverID, err = uuid.Parse(receiver); err != nil {
		return nil, fmt.Errorf("invalid receiver id %q: %w", receiver, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for transaction %s: %w", t.TransactionID, err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("invalid fee for transaction %s: %w", t.TransactionID, err)
	}
	t.Status = domain.TransactionStatus(status)
	t.Timestamp = parseTime(ts)
	t.UpdatedAt = parseTime(updatedAt)

	return t, nil
}

// Create inserts a new transaction.
func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.TransactionID,
		t.SenderID.String(),
		t.ReceiverID.String(),
		t.Amount.String(),
		t.Fee.String(),
		t.FileName,
		t.FileID,
		t.FileSize,
		string(t.Status),
		formatTime(t.Timestamp),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrTransactionAlreadyExists
		case isForeignKeyViolation(err):
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID.
func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return getTransaction(ctx, r.db.db, id)
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTransaction(ctx context.Context, q queryRower, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = ?`

	t, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListByUser returns transactions where the user is sender or receiver, newest first.
func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.Transaction], error) {
	id := userID.String()

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE sender_id = ? OR receiver_id = ?`, id, id,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY timestamp DESC, transaction_id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, id, id, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	items, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Transaction]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func collectTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	items := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return items, nil
}

// MarkFailed moves a pending transaction to failed.
func (r *transactionRepository) MarkFailed(ctx context.Context, id string) (*domain.Transaction, error) {
	var out *domain.Transaction

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx,
			`UPDATE transactions SET status = ?, updated_at = ? WHERE transaction_id = ? AND status = ?`,
			string(domain.TransactionFailed), formatTime(now), id, string(domain.TransactionPending),
		)
		if err != nil {
			return fmt.Errorf("failed to mark transaction failed: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		out, err = getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrInvalidStatusTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Settle completes a pending transaction and moves the funds.
func (r *transactionRepository) Settle(ctx context.Context, id string) (*domain.Transaction, error) {
	var out *domain.Transaction

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if !t.CanTransitionTo(domain.TransactionCompleted) {
			return domain.ErrInvalidStatusTransition
		}

		var senderBalance, receiverBalance string
		if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, t.SenderID.String()).Scan(&senderBalance); err != nil {
			if isNoRows(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to load sender balance: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, t.ReceiverID.String()).Scan(&receiverBalance); err != nil {
			if isNoRows(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to load receiver balance: %w", err)
		}

		sb, err := decimal.NewFromString(senderBalance)
		if err != nil {
			return fmt.Errorf("invalid sender balance: %w", err)
		}
		rb, err := decimal.NewFromString(receiverBalance)
		if err != nil {
			return fmt.Errorf("invalid receiver balance: %w", err)
		}

		total := t.Total()
		if sb.LessThan(total) {
			return domain.ErrInsufficientBalance
		}

		now := time.Now().UTC()
		stamp := formatTime(now)

		if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ?, updated_at = ? WHERE id = ?`,
			sb.Sub(total).String(), stamp, t.SenderID.String()); err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ?, updated_at = ? WHERE id = ?`,
			rb.Add(t.Amount).String(), stamp, t.ReceiverID.String()); err != nil {
			return fmt.Errorf("failed to credit receiver: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE transactions SET status = ?, updated_at = ? WHERE transaction_id = ?`,
			string(domain.TransactionCompleted), stamp, id); err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}

		t.Status = domain.TransactionCompleted
		t.UpdatedAt = now
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListStalePending returns pending transactions created before the cutoff, oldest first.
func (r *transactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = ? AND timestamp < ?
		ORDER BY timestamp
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(domain.TransactionPending), formatTime(before), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// Ensure transactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*transactionRepository)(nil)
