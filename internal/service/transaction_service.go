package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/repository"
)

// Transition lock timing.
const (
	transitionLockTTL     = 30 * time.Second
	transitionLockRetries = 20
	transitionLockDelay   = 50 * time.Millisecond
)

// UserEvicter drops cached user records whose balances changed outside the user repository.
type UserEvicter interface {
	Evict(ctx context.Context, id uuid.UUID)
}

// TransactionService handles transaction recording and settlement.
type TransactionService struct {
	txRepo  repository.TransactionRepository
	locker  lock.Locker
	evicter UserEvicter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewTransactionService creates a new TransactionService.
// evicter may be nil when users are not cached.
func NewTransactionService(
	txRepo repository.TransactionRepository,
	locker lock.Locker,
	evicter UserEvicter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		txRepo:  txRepo,
		locker:  locker,
		evicter: evicter,
		metrics: m,
		logger:  logger.With().Str("service", "transaction").Logger(),
	}
}

// CreateTransactionInput contains the data for a new transaction.
// The sender is always the authenticated user.
type CreateTransactionInput struct {
	// TransactionID is optional. A UUID is generated when empty.
	TransactionID string
	ReceiverID    uuid.UUID
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	FileName      string
	FileID        string
	FileSize      int64
}

// Create records a pending transaction.
func (s *TransactionService) Create(ctx context.Context, senderID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	tx := domain.NewTransaction(input.TransactionID, senderID, input.ReceiverID, input.Amount, input.Fee)
	tx.FileName = input.FileName
	tx.FileID = input.FileID
	tx.FileSize = input.FileSize

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionAlreadyExists):
			return nil, domain.NewDomainError(err, "duplicate transaction", tx.TransactionID)
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, domain.NewDomainError(err, "unknown receiver", input.ReceiverID.String())
		}
		s.logger.Error().Err(err).Str("transaction_id", tx.TransactionID).Msg("failed to create transaction")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.TransactionCreated()
	s.logger.Info().
		Str("transaction_id", tx.TransactionID).
		Str("sender", senderID.String()).
		Str("receiver", input.ReceiverID.String()).
		Str("amount", tx.Amount.String()).
		Msg("transaction recorded")

	return tx, nil
}

// Get returns a transaction the actor participates in.
func (s *TransactionService) Get(ctx context.Context, actorID uuid.UUID, transactionID string) (*domain.Transaction, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.Involves(actorID) {
		return nil, domain.ErrAccessDenied
	}
	return tx, nil
}

// History returns the transactions where userID is sender or receiver, newest first.
// Users may only read their own history.
func (s *TransactionService) History(ctx context.Context, actorID uuid.UUID, userID string, limit, offset int) (*repository.ListResult[domain.Transaction], error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrInvalidUserID
	}
	if id != actorID {
		return nil, domain.ErrAccessDenied
	}

	result, err := s.txRepo.ListByUser(ctx, id, page(limit, offset))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list transactions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// UpdateStatus moves a pending transaction to completed or failed.
// Only the sender may complete, which settles the balances. Either participant may fail it.
func (s *TransactionService) UpdateStatus(ctx context.Context, actorID uuid.UUID, transactionID string, next domain.TransactionStatus) (*domain.Transaction, error) {
	if !next.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if !next.IsTerminal() {
		return nil, domain.ErrInvalidStatusTransition
	}

	l := lock.NewLock(s.locker, lock.Keys.Transaction(transactionID))
	acquired, err := l.AcquireWithRetry(ctx, transitionLockTTL, transitionLockRetries, transitionLockDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to acquire transaction lock")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil, ErrTransactionBusy
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to release transaction lock")
		}
	}()

	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.Involves(actorID) {
		return nil, domain.ErrAccessDenied
	}
	if !tx.CanTransitionTo(next) {
		return nil, domain.NewDomainError(domain.ErrInvalidStatusTransition, string(tx.Status)+" -> "+string(next), transactionID)
	}

	var updated *domain.Transaction
	switch next {
	case domain.TransactionCompleted:
		if actorID != tx.SenderID {
			s.logger.Warn().
				Str("transaction_id", transactionID).
				Str("actor", actorID.String()).
				Msg("receiver attempted to complete transaction")
			return nil, domain.ErrAccessDenied
		}
		updated, err = s.txRepo.Settle(ctx, transactionID)
		if err == nil && s.evicter != nil {
			s.evicter.Evict(ctx, tx.SenderID)
			s.evicter.Evict(ctx, tx.ReceiverID)
		}
	default:
		updated, err = s.txRepo.MarkFailed(ctx, transactionID)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance),
			errors.Is(err, domain.ErrInvalidStatusTransition),
			errors.Is(err, domain.ErrTransactionNotFound),
			errors.Is(err, domain.ErrUserNotFound):
			return nil, err
		}
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to update transaction status")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.TransactionTransition(string(next))
	s.logger.Info().
		Str("transaction_id", transactionID).
		Str("status", string(next)).
		Str("actor", actorID.String()).
		Msg("transaction status updated")

	return updated, nil
}

func (s *TransactionService) load(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to get transaction")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return tx, nil
}
