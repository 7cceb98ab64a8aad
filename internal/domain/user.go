// Package domain contains the core business entities for Squid Coin.
// These are plain Go structs that carry the invariants of users, transactions
// and registered files, independent of any storage or transport.
package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Password and username constraints.
const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 255
)

// User represents a registered account.
// Users are referenced by transactions but do not own them.
type User struct {
	// ID is the unique identifier for the user (generated on signup).
	ID uuid.UUID `json:"id"`

	// Username is the unique display name.
	// Constraints: 3-255 characters.
	Username string `json:"username"`

	// Email is the unique, lowercased email address used for login.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// PublicKey is the PEM-encoded RSA public key generated at signup.
	PublicKey string `json:"publicKey"`

	// Balance is the coin balance. Never negative.
	Balance decimal.Decimal `json:"balance"`

	// Reputation is the provider reputation score.
	Reputation int `json:"reputation"`

	// CreatedAt is the timestamp when the user was created. Immutable.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new User with default values.
func NewUser(username, email, passwordHash, publicKey string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		PublicKey:    publicKey,
		Balance:      decimal.Zero,
		Reputation:   0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks the username length.
func ValidateUsername(username string) error {
	n := len(strings.TrimSpace(username))
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks that the address parses and carries no display name.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

// CanAfford reports whether the balance covers the given total.
func (u *User) CanAfford(total decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(total)
}
