package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/metrics"
)

func staleTx(id string) *domain.Transaction {
	tx := domain.NewTransaction(id, uuid.New(), uuid.New(), decimal.NewFromInt(1), decimal.Zero)
	tx.Timestamp = time.Now().Add(-48 * time.Hour)
	return tx
}

func newTestExpiry(repo *mockTransactionRepository, locker lock.Locker, batch int) *ExpiryService {
	e := NewExpiryService(repo, locker, metrics.New(), zerolog.Nop(), ExpiryConfig{
		Interval:   time.Minute,
		PendingTTL: 24 * time.Hour,
		BatchSize:  batch,
	})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	return e
}

func TestExpiryService_RunOnce(t *testing.T) {
	repo := new(mockTransactionRepository)
	cutoff := time.Date(2026, 1, 1, 3, 4, 5, 0, time.UTC)

	repo.On("ListStalePending", mock.Anything, cutoff, 2).
		Return([]*domain.Transaction{staleTx("a"), staleTx("b")}, nil).Once()
	repo.On("ListStalePending", mock.Anything, cutoff, 2).
		Return([]*domain.Transaction{staleTx("c")}, nil).Once()
	repo.On("MarkFailed", mock.Anything, "a").Return(staleTx("a"), nil)
	repo.On("MarkFailed", mock.Anything, "b").Return(nil, domain.ErrInvalidStatusTransition)
	repo.On("MarkFailed", mock.Anything, "c").Return(staleTx("c"), nil)

	result := newTestExpiry(repo, lock.NewNoOpLocker(), 2).RunOnce(context.Background())

	assert.Equal(t, 2, result.Expired)
	assert.Equal(t, 0, result.Errors)
	assert.False(t, result.Skipped)
	repo.AssertExpectations(t)
}

func TestExpiryService_StopsOnErrors(t *testing.T) {
	repo := new(mockTransactionRepository)
	repo.On("ListStalePending", mock.Anything, mock.Anything, 1).
		Return([]*domain.Transaction{staleTx("a")}, nil).Once()
	repo.On("MarkFailed", mock.Anything, "a").Return(nil, errors.New("database is locked"))

	result := newTestExpiry(repo, lock.NewNoOpLocker(), 1).RunOnce(context.Background())

	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, 1, result.Errors)
	repo.AssertNumberOfCalls(t, "ListStalePending", 1)
}

func TestExpiryService_SkipsWhenLocked(t *testing.T) {
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, lock.Keys.PendingExpiry(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	repo := new(mockTransactionRepository)
	result := newTestExpiry(repo, locker, 10).RunOnce(ctx)

	assert.True(t, result.Skipped)
	repo.AssertNotCalled(t, "ListStalePending", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpiryService_StartStop(t *testing.T) {
	repo := new(mockTransactionRepository)
	repo.On("ListStalePending", mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.Transaction{}, nil)

	e := newTestExpiry(repo, lock.NewNoOpLocker(), 10)
	e.Start()
	e.Start()
	e.Stop()
	e.Stop()

	repo.AssertCalled(t, "ListStalePending", mock.Anything, mock.Anything, 10)
}
