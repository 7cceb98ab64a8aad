package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
	"github.com/prn-tf/squidcoin/internal/storage"
)

// =============================================================================
// Mock Repository Types
// =============================================================================

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	args := m.Called(ctx, id, balanceDelta, reputationDelta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.User]), args.Error(1)
}

type mockTransactionRepository struct {
	mock.Mock
}

func (m *mockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *mockTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts repository.ListOptions) (*repository.ListResult[domain.Transaction], error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.Transaction]), args.Error(1)
}

func (m *mockTransactionRepository) MarkFailed(ctx context.Context, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *mockTransactionRepository) Settle(ctx context.Context, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *mockTransactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

type mockFileRepository struct {
	mock.Mock
}

func (m *mockFileRepository) Create(ctx context.Context, file *domain.FileData) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *mockFileRepository) GetByHash(ctx context.Context, hash string) (*domain.FileData, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileData), args.Error(1)
}

func (m *mockFileRepository) List(ctx context.Context, opts repository.FileListOptions) (*repository.ListResult[domain.FileData], error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.FileData]), args.Error(1)
}

func (m *mockFileRepository) Update(ctx context.Context, file *domain.FileData) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *mockFileRepository) DeleteByHash(ctx context.Context, hash string) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (*storage.PresignedURL, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignedURL), args.Error(1)
}

func (m *mockObjectStore) PresignPut(ctx context.Context, key string, ttl time.Duration) (*storage.PresignedURL, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignedURL), args.Error(1)
}

func (m *mockObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockEvicter struct {
	mock.Mock
}

func (m *mockEvicter) Evict(ctx context.Context, id uuid.UUID) {
	m.Called(ctx, id)
}

// =============================================================================
// In-memory UserRepository with unique-index semantics
// =============================================================================

// uniqueUserRepository rejects duplicate emails and usernames atomically,
// the way the database unique indexes do.
type uniqueUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newUniqueUserRepository() *uniqueUserRepository {
	return &uniqueUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (r *uniqueUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrUsernameAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *uniqueUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *uniqueUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *uniqueUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *uniqueUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *uniqueUserRepository) Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	next := u.Balance.Add(balanceDelta)
	if next.IsNegative() {
		return nil, domain.ErrNegativeBalance
	}
	u.Balance = next
	u.Reputation += reputationDelta
	cp := *u
	return &cp, nil
}

func (r *uniqueUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		items = append(items, &cp)
	}
	return &repository.ListResult[domain.User]{Items: items, Total: int64(len(items)), Limit: opts.Limit, Offset: opts.Offset}, nil
}

var (
	_ repository.UserRepository        = (*mockUserRepository)(nil)
	_ repository.UserRepository        = (*uniqueUserRepository)(nil)
	_ repository.TransactionRepository = (*mockTransactionRepository)(nil)
	_ repository.FileRepository        = (*mockFileRepository)(nil)
	_ storage.ObjectStore              = (*mockObjectStore)(nil)
)
