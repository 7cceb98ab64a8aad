package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

const transactionSelect = `
	SELECT transaction_id, sender_id::text, receiver_id::text, amount::text, fee::text,
	       file_name, file_id, file_size, status, timestamp, updated_at
	FROM transactions
`

// transactionRepository implements repository.TransactionRepository.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var sender, receiver, amount, fee, status string

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
		&t.Timestamp,
		&t.UpdatedAt,
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
	if t.Amount, err = parseDecimal(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for transaction %s: %w", t.TransactionID, err)
	}
	if t.Fee, err = parseDecimal(fee); err != nil {
		return nil, fmt.Errorf("invalid fee for transaction %s: %w", t.TransactionID, err)
	}
	t.Status = domain.TransactionStatus(status)

	return t, nil
}

// Create inserts a new transaction.
func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, sender_id, receiver_id, amount, fee, file_name, file_id, file_size, status, timestamp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		t.TransactionID,
		t.SenderID.String(),
		t.ReceiverID.String(),
		t.Amount.String(),
		t.Fee.String(),
		t.FileName,
		t.FileID,
		t.FileSize,
		string(t.Status),
		t.Timestamp,
		t.UpdatedAt,
	)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return domain.ErrTransactionAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func getTransaction(ctx context.Context, q Querier, id string, forUpdate bool) (*domain.Transaction, error) {
	query := transactionSelect + " WHERE transaction_id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	t, err := scanTransaction(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetByID retrieves a transaction by its ID.
func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return getTransaction(ctx, r.db.Pool, id, false)
}

// ListByUser returns transactions where the user is sender or receiver, newest first.
func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.Transaction], error) {
	id := userID.String()

	var total int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR receiver_id = $1`, id,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		transactionSelect+` WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY timestamp DESC, transaction_id DESC
		LIMIT $2 OFFSET $3`,
		id, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

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

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

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
	t, err := scanTransaction(r.db.Pool.QueryRow(ctx, `
		UPDATE transactions SET status = 'failed', updated_at = $2
		WHERE transaction_id = $1 AND status = 'pending'
		RETURNING transaction_id, sender_id::text, receiver_id::text, amount::text, fee::text,
		          file_name, file_id, file_size, status, timestamp, updated_at
	`, id, time.Now().UTC()))
	if err == nil {
		return t, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	// Nothing updated: either unknown or no longer pending.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidStatusTransition
}

// Settle completes a pending transaction and moves the funds.
// Rows are locked in a fixed order (transaction, then users by id) to avoid deadlocks.
func (r *transactionRepository) Settle(ctx context.Context, id string) (*domain.Transaction, error) {
	var out *domain.Transaction

	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		t, err := getTransaction(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !t.CanTransitionTo(domain.TransactionCompleted) {
			return domain.ErrInvalidStatusTransition
		}

		rows, err := tx.Query(ctx,
			`SELECT id::text, balance::text FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`,
			t.SenderID.String(), t.ReceiverID.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to lock balances: %w", err)
		}
		balances := make(map[string]string, 2)
		for rows.Next() {
			var uid, bal string
			if err := rows.Scan(&uid, &bal); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan balance: %w", err)
			}
			balances[uid] = bal
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating balances: %w", err)
		}

		senderRaw, okS := balances[t.SenderID.String()]
		if _, okR := balances[t.ReceiverID.String()]; !okS || !okR {
			return domain.ErrUserNotFound
		}
		senderBalance, err := parseDecimal(senderRaw)
		if err != nil {
			return fmt.Errorf("invalid sender balance: %w", err)
		}

		total := t.Total()
		if senderBalance.LessThan(total) {
			return domain.ErrInsufficientBalance
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE users SET balance = balance - $2::numeric, updated_at = $3 WHERE id = $1`,
			t.SenderID.String(), total.String(), now); err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $2::numeric, updated_at = $3 WHERE id = $1`,
			t.ReceiverID.String(), t.Amount.String(), now); err != nil {
			return fmt.Errorf("failed to credit receiver: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = 'completed', updated_at = $2 WHERE transaction_id = $1`,
			id, now); err != nil {
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
	rows, err := r.db.Pool.Query(ctx,
		transactionSelect+` WHERE status = 'pending' AND timestamp < $1 ORDER BY timestamp LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	return collectTransactions(rows)
}

// Ensure transactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*transactionRepository)(nil)
