// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/pulsefit/pulsefit/internal/errutil"
)

// CodeSender delivers a challenge code to a user-controlled channel.
// Delivery is best-effort and outside the trust boundary: a failure must
// not leak or invalidate the stored code.
type CodeSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// dummyPasswordHash is verified against when a login targets an unknown
// email, so response time does not reveal whether the account exists.
// It is a fake hash that can never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing-attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SignupParams carries the input to Signup.
type SignupParams struct {
	FullName        string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Gender          string
}

// LoginResult is the outcome of a successful login or second-factor
// verification: a bearer token plus the display claims it embeds.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Verified  bool
	Account   PublicAccount
}

// Service orchestrates signup, login, and the second-factor flow. It
// holds no locks: the mutual exclusion needed for single-use codes is
// pushed into ChallengeStore.TakeIfMatches so the service can run as
// multiple stateless instances.
type Service struct {
	accounts   AccountRepository
	challenges ChallengeStore
	hasher     PasswordHasher
	tokens     *TokenIssuer
	sender     CodeSender
	ttl        time.Duration
	logger     *slog.Logger
}

// NewService creates a Service. All collaborators are required.
func NewService(
	accounts AccountRepository,
	challenges ChallengeStore,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	sender CodeSender,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if challenges == nil {
		return nil, oops.Errorf("challenge store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if sender == nil {
		return nil, oops.Errorf("code sender is required")
	}
	return &Service{
		accounts:   accounts,
		challenges: challenges,
		hasher:     hasher,
		tokens:     tokens,
		sender:     sender,
		ttl:        DefaultChallengeTTL,
		logger:     slog.Default(),
	}, nil
}

// WithLogger sets the logger used for internal failures.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithChallengeTTL overrides the challenge TTL (used in tests).
func (s *Service) WithChallengeTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Signup validates input, hashes the password, and persists the account.
// It returns the created account's public fields. No token is issued:
// signup alone does not authenticate.
func (s *Service) Signup(ctx context.Context, p SignupParams) (*PublicAccount, error) {
	if p.Password != p.ConfirmPassword {
		return nil, oops.Code(CodeValidationFailed).Errorf("passwords do not match")
	}
	if p.Password == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("password cannot be empty")
	}

	email := NormalizeEmail(p.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	_, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeAccountExists).Errorf("account already exists")
	case errors.Is(err, ErrNotFound):
		// Expected: proceed with the insert.
	default:
		return nil, oops.Code(CodeSignupFailed).
			With("operation", "get account by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		// Empty password is already rejected above, so any failure here
		// is resource exhaustion or a broken random source.
		if errutil.CodeOf(err) == CodeValidationFailed {
			return nil, err
		}
		return nil, oops.Code(CodeSignupFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(p.FullName, p.Username, email, hash, p.Gender)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// A concurrent signup can win the uniqueness race after our
		// existence check; the repository surfaces that as ErrConflict.
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code(CodeAccountExists).Wrap(err)
		}
		return nil, oops.Code(CodeSignupFailed).
			With("operation", "create account").
			Wrap(err)
	}

	public := account.Public()
	return &public, nil
}

// Login verifies the password for an email and, on success, issues a
// first-factor token. Unknown email and wrong password produce the same
// error so the response cannot be used to enumerate accounts. Password
// verification runs against a dummy hash when the account is absent to
// keep response time consistent.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	accountExists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		accountExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep going with the dummy hash.
	default:
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && accountExists {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !accountExists || !valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
	}

	return s.issueToken(account, false, FirstFactorTokenTTL)
}

// IssueSecondFactor generates a code, stores it with the configured TTL,
// and dispatches it via the CodeSender. The email only has to look like
// an email: the flow never confirms account existence to the caller. A
// delivery failure is surfaced distinctly but does not roll back the
// stored challenge — the code stays valid for the TTL and a retried
// issuance supersedes it.
func (s *Service) IssueSecondFactor(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	code, err := GenerateChallengeCode()
	if err != nil {
		return oops.Code(CodeChallengeFailed).
			With("operation", "generate code").
			Wrap(err)
	}

	if err := s.challenges.Put(ctx, email, code, s.ttl); err != nil {
		return oops.Code(CodeChallengeFailed).
			With("operation", "store challenge").
			Wrap(err)
	}

	if err := s.sender.SendCode(ctx, email, code); err != nil {
		errutil.LogError(s.logger, "challenge delivery failed", err)
		return oops.Code(CodeChallengeDelivery).
			With("operation", "send code").
			Wrap(err)
	}
	return nil
}

// VerifySecondFactor atomically consumes the stored challenge and, on
// success, issues a token representing a fully verified session. The
// consume happens before the account lookup so a replayed request can
// never be told apart from an expired one.
func (s *Service) VerifySecondFactor(ctx context.Context, email, code string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	ok, err := s.challenges.TakeIfMatches(ctx, email, code)
	if err != nil {
		return nil, oops.Code(CodeChallengeFailed).
			With("operation", "take challenge").
			Wrap(err)
	}
	if !ok {
		return nil, oops.Code(CodeChallengeInvalid).Errorf("code expired or invalid")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A challenge existed for an email with no account behind it.
			// That is a data inconsistency, not a caller mistake.
			return nil, oops.Code(CodeAccountInconsistent).
				With("operation", "get account by email").
				Wrap(err)
		}
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "get account by email").
			Wrap(err)
	}

	return s.issueToken(account, true, VerifiedTokenTTL)
}

// issueToken mints a token for the account and assembles the result.
func (s *Service) issueToken(account *Account, verified bool, ttl time.Duration) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(account.ID.String(), account.Email, account.FullName, verified, ttl)
	if err != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "issue token").
			Wrap(err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Verified:  verified,
		Account:   account.Public(),
	}, nil
}
