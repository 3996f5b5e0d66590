// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that start with a letter and contain
// only letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// emailRegex is a deliberately simple shape check; deliverability is
// proven by the second-factor flow, not by parsing.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Account is an identity record. The password hash is always the output
// of a PasswordHasher; the raw secret is never stored.
type Account struct {
	ID           ulid.ULID
	FullName     string
	Username     string
	Email        string // normalized lower-case, globally unique
	PasswordHash string
	Gender       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount contains the fields safe to return to callers.
type PublicAccount struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
}

// Public returns the caller-visible projection of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:       a.ID.String(),
		FullName: a.FullName,
		Username: a.Username,
		Email:    a.Email,
		Gender:   a.Gender,
	}
}

// NewAccount creates a validated Account with a fresh ID. The email is
// normalized before storage so uniqueness is case-insensitive.
func NewAccount(fullName, username, email, passwordHash, gender string) (*Account, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("full name cannot be empty")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Gender:       strings.TrimSpace(gender),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address. All lookups and
// challenge keys use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the shape of an (already normalized) email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeValidationFailed).Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeValidationFailed).
			With("email", email).
			Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername validates a username against the rules:
// MinUsernameLength to MaxUsernameLength characters, starting with a
// letter, containing only letters, numbers, and underscores.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return oops.Code(CodeValidationFailed).
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeValidationFailed).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeValidationFailed).
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns an error wrapping ErrConflict
	// if the email or username is already taken.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by normalized email.
	// Returns an error wrapping ErrNotFound if no account matches.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)
}
