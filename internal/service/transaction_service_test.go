package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/repository"
)

func newTestTransactionService(repo *mockTransactionRepository, evicter UserEvicter) *TransactionService {
	return NewTransactionService(repo, lock.NewNoOpLocker(), evicter, nil, zerolog.Nop())
}

func pendingTx(sender, receiver uuid.UUID) *domain.Transaction {
	return domain.NewTransaction("tx-1", sender, receiver, decimal.NewFromInt(10), decimal.NewFromInt(1))
}

func TestTransactionService_Create(t *testing.T) {
	sender, receiver := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		input   CreateTransactionInput
		setup   func(*mockTransactionRepository)
		wantErr error
	}{
		{
			name:  "success with generated id",
			input: CreateTransactionInput{ReceiverID: receiver, Amount: decimal.NewFromInt(5), Fee: decimal.Zero},
			setup: func(repo *mockTransactionRepository) {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(tx *domain.Transaction) bool {
					_, err := uuid.Parse(tx.TransactionID)
					return err == nil && tx.Status == domain.TransactionPending && tx.SenderID == sender
				})).Return(nil)
			},
		},
		{
			name:    "self transaction rejected before persistence",
			input:   CreateTransactionInput{ReceiverID: sender, Amount: decimal.NewFromInt(5)},
			wantErr: domain.ErrSelfTransaction,
		},
		{
			name:    "negative amount",
			input:   CreateTransactionInput{ReceiverID: receiver, Amount: decimal.NewFromInt(-1)},
			wantErr: domain.ErrNegativeAmount,
		},
		{
			name:    "negative fee",
			input:   CreateTransactionInput{ReceiverID: receiver, Amount: decimal.NewFromInt(1), Fee: decimal.NewFromInt(-1)},
			wantErr: domain.ErrNegativeFee,
		},
		{
			name:  "duplicate id",
			input: CreateTransactionInput{TransactionID: "tx-1", ReceiverID: receiver, Amount: decimal.NewFromInt(1)},
			setup: func(repo *mockTransactionRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrTransactionAlreadyExists)
			},
			wantErr: domain.ErrTransactionAlreadyExists,
		},
		{
			name:  "unknown receiver",
			input: CreateTransactionInput{ReceiverID: receiver, Amount: decimal.NewFromInt(1)},
			setup: func(repo *mockTransactionRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrUserNotFound)
			},
			wantErr: domain.ErrUserNotFound,
		},
		{
			name:  "database failure",
			input: CreateTransactionInput{ReceiverID: receiver, Amount: decimal.NewFromInt(1)},
			setup: func(repo *mockTransactionRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantErr: ErrInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockTransactionRepository)
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc := newTestTransactionService(repo, nil)

			tx, err := svc.Create(context.Background(), sender, tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.setup == nil {
					repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.TransactionPending, tx.Status)
			repo.AssertExpectations(t)
		})
	}
}

func TestTransactionService_Get(t *testing.T) {
	sender, receiver, stranger := uuid.New(), uuid.New(), uuid.New()
	repo := new(mockTransactionRepository)
	repo.On("GetByID", mock.Anything, "tx-1").Return(pendingTx(sender, receiver), nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrTransactionNotFound)
	svc := newTestTransactionService(repo, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, receiver, "tx-1")
	assert.NoError(t, err)

	_, err = svc.Get(ctx, stranger, "tx-1")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = svc.Get(ctx, sender, "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionService_History(t *testing.T) {
	me := uuid.New()
	repo := new(mockTransactionRepository)
	repo.On("ListByUser", mock.Anything, me, repository.ListOptions{Offset: 0, Limit: DefaultPageLimit}).
		Return(&repository.ListResult[domain.Transaction]{Total: 0}, nil)
	svc := newTestTransactionService(repo, nil)
	ctx := context.Background()

	_, err := svc.History(ctx, me, me.String(), 0, 0)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	_, err = svc.History(ctx, me, "not-a-uuid", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = svc.History(ctx, me, uuid.NewString(), 0, 0)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestTransactionService_UpdateStatus(t *testing.T) {
	sender, receiver, stranger := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		actor   uuid.UUID
		current domain.TransactionStatus
		next    domain.TransactionStatus
		setup   func(*mockTransactionRepository)
		wantErr error
	}{
		{
			name:    "sender completes",
			actor:   sender,
			current: domain.TransactionPending,
			next:    domain.TransactionCompleted,
			setup: func(repo *mockTransactionRepository) {
				done := pendingTx(sender, receiver)
				done.Status = domain.TransactionCompleted
				repo.On("Settle", mock.Anything, "tx-1").Return(done, nil)
			},
		},
		{
			name:    "receiver cannot complete",
			actor:   receiver,
			current: domain.TransactionPending,
			next:    domain.TransactionCompleted,
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:    "receiver fails",
			actor:   receiver,
			current: domain.TransactionPending,
			next:    domain.TransactionFailed,
			setup: func(repo *mockTransactionRepository) {
				failed := pendingTx(sender, receiver)
				failed.Status = domain.TransactionFailed
				repo.On("MarkFailed", mock.Anything, "tx-1").Return(failed, nil)
			},
		},
		{
			name:    "stranger denied",
			actor:   stranger,
			current: domain.TransactionPending,
			next:    domain.TransactionFailed,
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:    "terminal state is final",
			actor:   sender,
			current: domain.TransactionCompleted,
			next:    domain.TransactionFailed,
			wantErr: domain.ErrInvalidStatusTransition,
		},
		{
			name:    "back to pending",
			actor:   sender,
			current: domain.TransactionPending,
			next:    domain.TransactionPending,
			wantErr: domain.ErrInvalidStatusTransition,
		},
		{
			name:    "unknown status",
			actor:   sender,
			current: domain.TransactionPending,
			next:    domain.TransactionStatus("refunded"),
			wantErr: domain.ErrInvalidStatus,
		},
		{
			name:    "insufficient balance",
			actor:   sender,
			current: domain.TransactionPending,
			next:    domain.TransactionCompleted,
			setup: func(repo *mockTransactionRepository) {
				repo.On("Settle", mock.Anything, "tx-1").Return(nil, domain.ErrInsufficientBalance)
			},
			wantErr: domain.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockTransactionRepository)
			current := pendingTx(sender, receiver)
			current.Status = tt.current
			repo.On("GetByID", mock.Anything, "tx-1").Return(current, nil).Maybe()
			if tt.setup != nil {
				tt.setup(repo)
			}

			evicter := new(mockEvicter)
			evicter.On("Evict", mock.Anything, mock.Anything).Return()
			svc := newTestTransactionService(repo, evicter)

			tx, err := svc.UpdateStatus(context.Background(), tt.actor, "tx-1", tt.next)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
				if !errors.Is(tt.wantErr, domain.ErrInsufficientBalance) {
					repo.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
				}
				evicter.AssertNotCalled(t, "Evict", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, tx.Status)
			repo.AssertExpectations(t)

			if tt.next == domain.TransactionCompleted {
				evicter.AssertCalled(t, "Evict", mock.Anything, sender)
				evicter.AssertCalled(t, "Evict", mock.Anything, receiver)
			}
		})
	}
}

func TestTransactionService_UpdateStatus_LockHeld(t *testing.T) {
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, lock.Keys.Transaction("tx-1"), transitionLockTTL)
	require.NoError(t, err)
	require.True(t, acquired)

	repo := new(mockTransactionRepository)
	svc := NewTransactionService(repo, locker, nil, nil, zerolog.Nop())

	_, err = svc.UpdateStatus(ctx, uuid.New(), "tx-1", domain.TransactionFailed)
	assert.ErrorIs(t, err, ErrTransactionBusy)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
