package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxTransactionIDLength bounds client-supplied transaction IDs.
const MaxTransactionIDLength = 128

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	// TransactionPending is the initial state of every transaction.
	TransactionPending TransactionStatus = "pending"

	// TransactionCompleted means the payment settled. Terminal.
	TransactionCompleted TransactionStatus = "completed"

	// TransactionFailed means the exchange was abandoned or rejected. Terminal.
	TransactionFailed TransactionStatus = "failed"
)

// IsValid returns true if the status is one of the known values.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

// ParseTransactionStatus parses a status string.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Transaction records a file-exchange payment between two users.
type Transaction struct {
	// TransactionID is the unique identifier (client-supplied or generated).
	TransactionID string `json:"transactionId"`

	// SenderID references the paying user.
	SenderID uuid.UUID `json:"sender"`

	// ReceiverID references the user being paid (the provider).
	ReceiverID uuid.UUID `json:"receiver"`

	// Amount is the payment amount. Never negative.
	Amount decimal.Decimal `json:"amount"`

	// Fee is the network fee paid by the sender on top of Amount.
	Fee decimal.Decimal `json:"fee"`

	// FileName, FileID and FileSize describe the exchanged file.
	FileName string `json:"fileName,omitempty"`
	FileID   string `json:"fileId,omitempty"`
	FileSize int64  `json:"fileSize"`

	// Status is the lifecycle state.
	Status TransactionStatus `json:"status"`

	// Timestamp is when the transaction was recorded.
	Timestamp time.Time `json:"timestamp"`

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTransaction creates a pending transaction.
// An empty id is replaced by a random UUID.
func NewTransaction(id string, sender, receiver uuid.UUID, amount, fee decimal.Decimal) *Transaction {
	if strings.TrimSpace(id) == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &Transaction{
		TransactionID: strings.TrimSpace(id),
		SenderID:      sender,
		ReceiverID:    receiver,
		Amount:        amount,
		Fee:           fee,
		Status:        TransactionPending,
		Timestamp:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the invariants that must hold before a transaction is persisted.
func (t *Transaction) Validate() error {
	if t.TransactionID == "" || len(t.TransactionID) > MaxTransactionIDLength {
		return ErrInvalidTransactionID
	}
	if t.SenderID == uuid.Nil || t.ReceiverID == uuid.Nil {
		return ErrInvalidUserID
	}
	if t.SenderID == t.ReceiverID {
		return ErrSelfTransaction
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.Fee.IsNegative() {
		return ErrNegativeFee
	}
	if t.FileSize < 0 {
		return ErrInvalidFileSize
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Total is what the sender pays when the transaction settles.
func (t *Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// Involves reports whether the user is the sender or the receiver.
func (t *Transaction) Involves(userID uuid.UUID) bool {
	return t.SenderID == userID || t.ReceiverID == userID
}

// CanTransitionTo reports whether moving to next is allowed.
// Only pending transactions move, and only to completed or failed.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	return t.Status == TransactionPending && next.IsTerminal()
}

// IsStale returns true if the transaction has been pending longer than ttl.
func (t *Transaction) IsStale(ttl time.Duration, now time.Time) bool {
	return t.Status == TransactionPending && now.Sub(t.Timestamp) > ttl
}
