// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Challenge code configuration.
const (
	// ChallengeCodeLength is the number of decimal digits in a code.
	ChallengeCodeLength = 6

	// DefaultChallengeTTL is how long an issued code stays valid.
	DefaultChallengeTTL = 5 * time.Minute
)

// GenerateChallengeCode returns a fixed-length numeric code drawn from a
// cryptographically secure source. Bytes >= 250 are rejected so each
// digit is uniform (250 is the largest multiple of 10 below 256).
func GenerateChallengeCode() (string, error) {
	digits := make([]byte, 0, ChallengeCodeLength)
	buf := make([]byte, ChallengeCodeLength)
	for len(digits) < ChallengeCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code("CHALLENGE_GENERATE_FAILED").
				With("operation", "crypto/rand.Read").
				Wrap(err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == ChallengeCodeLength {
				break
			}
		}
	}
	return string(digits), nil
}

// ChallengeStore is keyed, TTL-bounded, single-use storage of pending
// verification codes. Implementations must make TakeIfMatches atomic per
// key: two concurrent calls with the correct code must not both succeed,
// and a failed attempt must not consume the code.
type ChallengeStore interface {
	// Put stores a code for the identity, overwriting any existing entry
	// (issuing a new challenge supersedes the previous one). The entry
	// vanishes once ttl elapses.
	Put(ctx context.Context, email, code string, ttl time.Duration) error

	// TakeIfMatches atomically consumes the entry for the identity if it
	// is present, unexpired, and equal to the supplied code. Returns
	// (true, nil) and deletes the entry on a match; (false, nil) when the
	// entry is absent, expired, or different — a still-valid non-matching
	// entry is left untouched. An error indicates store unavailability.
	TakeIfMatches(ctx context.Context, email, code string) (bool, error)
}

// challengeEntry is a stored code with its deadline.
type challengeEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryChallengeStore is an in-process ChallengeStore for development
// and tests. A single mutex serializes TakeIfMatches, which gives the
// per-key atomicity the interface requires. It is not suitable for
// multi-instance deployments; use the postgres implementation there.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]challengeEntry
	now     func() time.Time
}

// NewMemoryChallengeStore creates an empty MemoryChallengeStore.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]challengeEntry),
		now:     time.Now,
	}
}

// SetNowFunc replaces the store's clock (used in tests).
func (s *MemoryChallengeStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Put stores the code, superseding any previous entry for the email.
func (s *MemoryChallengeStore) Put(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = challengeEntry{
		code:      code,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// TakeIfMatches consumes the entry if present, unexpired, and matching.
func (s *MemoryChallengeStore) TakeIfMatches(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.entries, email)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return false, nil
	}
	delete(s.entries, email)
	return true, nil
}

// Compile-time interface check.
var _ ChallengeStore = (*MemoryChallengeStore)(nil)
