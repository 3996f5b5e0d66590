// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package workout

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultLeaderboardLimit bounds leaderboard queries that do not ask
// for a specific size.
const DefaultLeaderboardLimit = 10

// MaxLeaderboardLimit caps caller-supplied leaderboard sizes.
const MaxLeaderboardLimit = 100

// Service wraps the repository with validation.
type Service struct {
	entries Repository
}

// NewService creates a Service.
func NewService(entries Repository) (*Service, error) {
	if entries == nil {
		return nil, oops.Errorf("entries repository is required")
	}
	return &Service{entries: entries}, nil
}

// Log validates and stores a new entry for the account.
func (s *Service) Log(ctx context.Context, accountID ulid.ULID, exercise string, count int) (*Entry, error) {
	entry, err := NewEntry(accountID, exercise, count)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "create entry").
			Wrap(err)
	}
	return entry, nil
}

// History returns the account's entries, newest first.
func (s *Service) History(ctx context.Context, accountID ulid.ULID) ([]*Entry, error) {
	entries, err := s.entries.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "list entries").
			Wrap(err)
	}
	return entries, nil
}

// Leaderboard returns per-account totals for an exercise. A limit of
// zero means DefaultLeaderboardLimit; limits are capped.
func (s *Service) Leaderboard(ctx context.Context, exercise string, limit int) ([]*LeaderboardRow, error) {
	exercise = strings.ToLower(strings.TrimSpace(exercise))
	if exercise == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("exercise cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	rows, err := s.entries.Leaderboard(ctx, exercise, limit)
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "leaderboard").
			With("exercise", exercise).
			Wrap(err)
	}
	return rows, nil
}
