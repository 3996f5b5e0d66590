// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package workout provides exercise logging and the leaderboard.
package workout

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes for workout operations.
const (
	CodeValidationFailed = "WORKOUT_VALIDATION_FAILED"
	CodeStoreFailed      = "WORKOUT_STORE_FAILED"
)

// Entry is a single logged set of an exercise.
type Entry struct {
	ID        ulid.ULID `json:"id"`
	AccountID ulid.ULID `json:"account_id"`
	Exercise  string    `json:"exercise"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry creates a validated Entry with a fresh ID.
func NewEntry(accountID ulid.ULID, exercise string, count int) (*Entry, error) {
	exercise = strings.ToLower(strings.TrimSpace(exercise))
	if exercise == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("exercise cannot be empty")
	}
	if count <= 0 {
		return nil, oops.Code(CodeValidationFailed).
			With("count", count).
			Errorf("count must be positive")
	}
	return &Entry{
		ID:        ulid.Make(),
		AccountID: accountID,
		Exercise:  exercise,
		Count:     count,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LeaderboardRow is one account's total for an exercise.
type LeaderboardRow struct {
	AccountID ulid.ULID `json:"account_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Total     int64     `json:"total"`
}

// Repository manages workout entry persistence.
type Repository interface {
	// Create stores a new entry.
	Create(ctx context.Context, entry *Entry) error

	// ListByAccount returns an account's entries, newest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*Entry, error)

	// Leaderboard returns per-account totals for an exercise, highest
	// first, at most limit rows. Aggregation happens in the database.
	Leaderboard(ctx context.Context, exercise string, limit int) ([]*LeaderboardRow, error)
}
