package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

func createUser(t *testing.T, repo repository.UserRepository, name string) *domain.User {
	t.Helper()
	u := domain.NewUser(name, name+"@example.com", "hash", "pem")
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	u := createUser(t, repo, "alice")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, got.Balance.IsZero())
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, 0)

	got, err = repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	createUser(t, repo, "alice")

	err := repo.Create(ctx, domain.NewUser("alice2", "alice@example.com", "h", "k"))
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	err = repo.Create(ctx, domain.NewUser("alice", "other@example.com", "h", "k"))
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)

	// Both columns taken: the email wins.
	err = repo.Create(ctx, domain.NewUser("alice", "alice@example.com", "h", "k"))
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestUserRepository_UpdateConflicts(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	createUser(t, repo, "alice")
	bob := createUser(t, repo, "bobby")

	bob.Username = "alice"
	assert.ErrorIs(t, repo.Update(ctx, bob), domain.ErrUsernameAlreadyExists)

	bob.Username = "bobby"
	bob.Email = "alice@example.com"
	assert.ErrorIs(t, repo.Update(ctx, bob), domain.ErrEmailAlreadyExists)

	bob.Username = "alice"
	assert.ErrorIs(t, repo.Update(ctx, bob), domain.ErrEmailAlreadyExists)
}

func TestUserRepository_ConcurrentSignup(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	const attempts = 10
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every other attempt also reuses the username.
			name := "carol"
			if i%2 == 1 {
				name = fmt.Sprintf("carol%d", i)
			}
			errs[i] = repo.Create(ctx, domain.NewUser(name, "carol@example.com", "h", "k"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	}
	assert.Equal(t, 1, created)

	res, err := repo.List(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}

func TestUserRepository_Adjust(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	u := createUser(t, repo, "alice")

	got, err := repo.Adjust(ctx, u.ID, decimal.RequireFromString("12.5"), 3)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Balance.String())
	assert.Equal(t, 3, got.Reputation)

	_, err = repo.Adjust(ctx, u.ID, decimal.NewFromInt(-13), 0)
	assert.ErrorIs(t, err, domain.ErrNegativeBalance)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.5", stored.Balance.String())

	_, err = repo.Adjust(ctx, uuid.New(), decimal.NewFromInt(1), 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_UpdateAndList(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	a := createUser(t, repo, "alice")
	createUser(t, repo, "bobby")

	a.Reputation = 7
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Reputation)

	missing := domain.NewUser("ghost", "ghost@example.com", "h", "k")
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrUserNotFound)

	res, err := repo.List(ctx, repository.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Len(t, res.Items, 1)
}
