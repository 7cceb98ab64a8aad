package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
)

// DefaultUserCacheTTL is used when NewCachedUserRepository receives a zero TTL.
const DefaultUserCacheTTL = 5 * time.Minute

// cachedUser is the cache encoding of domain.User.
// The password hash is never written to the cache.
type cachedUser struct {
	ID         uuid.UUID       `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	PublicKey  string          `json:"public_key"`
	Balance    decimal.Decimal `json:"balance"`
	Reputation int             `json:"reputation"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toCachedUser(u *domain.User) cachedUser {
	return cachedUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		PublicKey:  u.PublicKey,
		Balance:    u.Balance,
		Reputation: u.Reputation,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (c cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:         c.ID,
		Username:   c.Username,
		Email:      c.Email,
		PublicKey:  c.PublicKey,
		Balance:    c.Balance,
		Reputation: c.Reputation,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// CachedUserRepository decorates a UserRepository with a read-through cache on GetByID.
// Cache failures are logged and fall through to the underlying repository.
// GetByID never carries PasswordHash, hit or miss; credential checks go through
// GetByEmail, which is not cached.
type CachedUserRepository struct {
	UserRepository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedUserRepository wraps next with a cache.
func NewCachedUserRepository(next UserRepository, cache Cache, ttl time.Duration, logger zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &CachedUserRepository{
		UserRepository: next,
		cache:          cache,
		ttl:            ttl,
		logger:         logger.With().Str("component", "user_cache").Logger(),
	}
}

// GetByID returns the cached user if present, otherwise loads and caches it.
func (r *CachedUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	key := CacheKeys.UserByID(id)

	data, err := r.cache.Get(ctx, key)
	if err == nil {
		var cu cachedUser
		if err := json.Unmarshal(data, &cu); err == nil {
			return cu.toDomain(), nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	user, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cu := toCachedUser(user)
	if data, err := json.Marshal(cu); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return cu.toDomain(), nil
}

// Update updates the user and evicts the cached copy.
func (r *CachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Update(ctx, user); err != nil {
		return err
	}
	r.evict(ctx, user.ID)
	return nil
}

// Adjust adjusts the user and evicts the cached copy.
func (r *CachedUserRepository) Adjust(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	user, err := r.UserRepository.Adjust(ctx, id, balanceDelta, reputationDelta)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, id)
	return user, nil
}

// Evict removes a user from the cache. Settlement calls this after balances move.
func (r *CachedUserRepository) Evict(ctx context.Context, id uuid.UUID) {
	r.evict(ctx, id)
}

func (r *CachedUserRepository) evict(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, CacheKeys.UserByID(id)); err != nil {
		r.logger.Warn().Err(err).Str("user_id", id.String()).Msg("cache eviction failed")
	}
}

// Ensure CachedUserRepository implements UserRepository.
var _ UserRepository = (*CachedUserRepository)(nil)
