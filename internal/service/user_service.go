package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/squidcoin/internal/auth"
	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/pkg/crypto"
	"github.com/prn-tf/squidcoin/internal/repository"
)

// UserConfig tunes signup and login.
type UserConfig struct {
	// BcryptCost is the password hashing cost.
	BcryptCost int

	// RSAKeyBits is the size of the keypair generated at signup.
	RSAKeyBits int

	// MaxLoginAttempts is the number of failed logins allowed per email within
	// LoginWindow. Zero disables throttling.
	MaxLoginAttempts int

	// LoginWindow is how long failed attempts are remembered.
	LoginWindow time.Duration
}

// DefaultUserConfig returns sensible defaults.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		BcryptCost:       bcrypt.DefaultCost,
		RSAKeyBits:       crypto.DefaultRSAKeyBits,
		MaxLoginAttempts: 5,
		LoginWindow:      15 * time.Minute,
	}
}

// UserService handles user management operations.
type UserService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenService
	cache    repository.Cache
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   UserConfig
}

// NewUserService creates a new UserService.
// cache may be nil, which disables login throttling.
func NewUserService(
	userRepo repository.UserRepository,
	tokens *auth.TokenService,
	cache repository.Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config UserConfig,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		cache:    cache,
		metrics:  m,
		logger:   logger.With().Str("service", "user").Logger(),
		config:   config,
	}
}

// SignupInput contains the data needed to create a new user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SignupOutput contains the created user and the private half of its keypair.
// The private key is returned once and never stored.
type SignupOutput struct {
	User       *domain.User
	PrivateKey string
}

// Signup creates a new user account.
// Uniqueness of email and username is enforced by the repository's unique indexes.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*SignupOutput, error) {
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	keys, err := crypto.GenerateKeyPair(s.config.RSAKeyBits)
	if err != nil {
		s.logger.Error().Err(err).Int("bits", s.config.RSAKeyBits).Msg("failed to generate keypair")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(input.Username, email, string(passwordHash), keys.PublicKey)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) || errors.Is(err, domain.ErrUsernameAlreadyExists) {
			s.logger.Debug().Str("email", email).Err(err).Msg("signup conflict")
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.Signup()
	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("user created")

	return &SignupOutput{User: user, PrivateKey: keys.PrivateKey}, nil
}

// LoginInput contains login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains the authenticated user and its session token.
type LoginOutput struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email := domain.NormalizeEmail(input.Email)

	if s.throttled(ctx, email) {
		s.metrics.Login("throttled")
		s.logger.Warn().Str("email", email).Msg("login throttled")
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Error().Err(err).Msg("failed to look up user")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		// Don't expose whether the email exists
		s.logger.Debug().Str("email", email).Msg("user not found during authentication")
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.Debug().Str("email", email).Msg("invalid password during authentication")
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.clearFailures(ctx, email)
	s.metrics.Login("success")
	s.logger.Info().Str("user_id", user.ID.String()).Msg("user authenticated")

	return &LoginOutput{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// throttled reports whether the email has used up its failed attempts.
// Cache failures do not block logins.
func (s *UserService) throttled(ctx context.Context, email string) bool {
	if s.cache == nil || s.config.MaxLoginAttempts <= 0 {
		return false
	}
	raw, err := s.cache.Get(ctx, repository.CacheKeys.LoginAttempts(email))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("failed to read login attempts")
		}
		return false
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return n >= int64(s.config.MaxLoginAttempts)
}

func (s *UserService) recordFailure(ctx context.Context, email string) {
	s.metrics.Login("failure")
	if s.cache == nil || s.config.MaxLoginAttempts <= 0 {
		return
	}
	key := repository.CacheKeys.LoginAttempts(email)
	n, err := s.cache.Increment(ctx, key, 1)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to count login attempt")
		return
	}
	// The window starts at the first failure
	if n == 1 {
		if err := s.cache.Expire(ctx, key, s.config.LoginWindow); err != nil {
			s.logger.Warn().Err(err).Msg("failed to set login window")
		}
	}
}

func (s *UserService) clearFailures(ctx context.Context, email string) {
	if s.cache == nil || s.config.MaxLoginAttempts <= 0 {
		return
	}
	if err := s.cache.Delete(ctx, repository.CacheKeys.LoginAttempts(email)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear login attempts")
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, limit, offset int) (*repository.ListResult[domain.User], error) {
	result, err := s.userRepo.List(ctx, page(limit, offset))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// AdjustAccount credits or debits a user's balance and reputation.
// The balance may not drop below zero.
func (s *UserService) AdjustAccount(ctx context.Context, id uuid.UUID, balanceDelta decimal.Decimal, reputationDelta int) (*domain.User, error) {
	user, err := s.userRepo.Adjust(ctx, id, balanceDelta, reputationDelta)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNegativeBalance) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to adjust account")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", id.String()).
		Str("balance_delta", balanceDelta.String()).
		Int("reputation_delta", reputationDelta).
		Msg("account adjusted")

	return user, nil
}
