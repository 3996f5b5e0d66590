// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/pulsefit/pulsefit/internal/auth"
)

// ChallengeStore implements auth.ChallengeStore using PostgreSQL. The
// single-use guarantee rests on one conditional DELETE per take, which
// Postgres executes atomically per row: of two concurrent takes with the
// correct code, only one deletes the row.
type ChallengeStore struct {
	pool poolIface
}

// NewChallengeStore creates a new ChallengeStore.
func NewChallengeStore(pool poolIface) *ChallengeStore {
	return &ChallengeStore{pool: pool}
}

// Put stores a code for the email, superseding any existing challenge.
func (s *ChallengeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	now := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO second_factor_challenges (email, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET code = $2, expires_at = $3, created_at = $4
	`, email, code, now.Add(ttl), now)
	if err != nil {
		return oops.Code("CHALLENGE_PUT_FAILED").
			With("operation", "upsert challenge").
			Wrap(err)
	}
	return nil
}

// TakeIfMatches deletes the challenge for the email if it matches the
// code and has not expired, reporting whether a row was consumed. A
// non-matching code leaves a still-valid row in place.
func (s *ChallengeStore) TakeIfMatches(ctx context.Context, email, code string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM second_factor_challenges
		WHERE email = $1 AND code = $2 AND expires_at > $3
	`, email, code, time.Now())
	if err != nil {
		return false, oops.Code("CHALLENGE_TAKE_FAILED").
			With("operation", "delete challenge").
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// DeleteExpired removes expired challenges and returns the count. Rows
// past their deadline are already unusable; this reclaims the space.
func (s *ChallengeStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM second_factor_challenges WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("CHALLENGE_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired challenges").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.ChallengeStore = (*ChallengeStore)(nil)
