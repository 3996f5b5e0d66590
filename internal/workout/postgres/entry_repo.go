// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package postgres provides the PostgreSQL workout repository.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pulsefit/pulsefit/internal/workout"
)

// poolIface is the subset of pgxpool.Pool the repository uses. Tests
// substitute a pgxmock pool.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntryRepository implements workout.Repository using PostgreSQL.
type EntryRepository struct {
	pool poolIface
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool poolIface) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create stores a new entry.
func (r *EntryRepository) Create(ctx context.Context, entry *workout.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workout_entries (id, account_id, exercise, count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		entry.ID.String(),
		entry.AccountID.String(),
		entry.Exercise,
		entry.Count,
		entry.CreatedAt,
	)
	if err != nil {
		return oops.Code("WORKOUT_CREATE_FAILED").
			With("operation", "insert workout entry").
			With("account_id", entry.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// ListByAccount returns an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*workout.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, exercise, count, created_at
		FROM workout_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("WORKOUT_LIST_FAILED").
			With("operation", "list workout entries").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	entries := []*workout.Entry{}
	for rows.Next() {
		var (
			idStr        string
			accountIDStr string
			exercise     string
			count        int
			createdAt    time.Time
		)
		if err := rows.Scan(&idStr, &accountIDStr, &exercise, &count, &createdAt); err != nil {
			return nil, oops.Code("WORKOUT_SCAN_FAILED").
				With("operation", "scan workout entry").
				Wrap(err)
		}

		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("WORKOUT_INVALID_ID").
				With("id", idStr).
				Wrap(err)
		}
		entryAccountID, err := ulid.Parse(accountIDStr)
		if err != nil {
			return nil, oops.Code("WORKOUT_INVALID_ACCOUNT_ID").
				With("account_id", accountIDStr).
				Wrap(err)
		}

		entries = append(entries, &workout.Entry{
			ID:        id,
			AccountID: entryAccountID,
			Exercise:  exercise,
			Count:     count,
			CreatedAt: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("WORKOUT_LIST_FAILED").
			With("operation", "iterate workout entries").
			Wrap(err)
	}
	return entries, nil
}

// Leaderboard aggregates totals per account for an exercise in SQL so
// only the ranked rows cross the wire.
func (r *EntryRepository) Leaderboard(ctx context.Context, exercise string, limit int) ([]*workout.LeaderboardRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.account_id, a.username, a.full_name, SUM(w.count) AS total
		FROM workout_entries w
		JOIN accounts a ON a.id = w.account_id
		WHERE w.exercise = $1
		GROUP BY w.account_id, a.username, a.full_name
		ORDER BY total DESC
		LIMIT $2
	`, exercise, limit)
	if err != nil {
		return nil, oops.Code("WORKOUT_LEADERBOARD_FAILED").
			With("operation", "query leaderboard").
			With("exercise", exercise).
			Wrap(err)
	}
	defer rows.Close()

	result := []*workout.LeaderboardRow{}
	for rows.Next() {
		var (
			accountIDStr string
			username     string
			fullName     string
			total        int64
		)
		if err := rows.Scan(&accountIDStr, &username, &fullName, &total); err != nil {
			return nil, oops.Code("WORKOUT_SCAN_FAILED").
				With("operation", "scan leaderboard row").
				Wrap(err)
		}

		accountID, err := ulid.Parse(accountIDStr)
		if err != nil {
			return nil, oops.Code("WORKOUT_INVALID_ACCOUNT_ID").
				With("account_id", accountIDStr).
				Wrap(err)
		}

		result = append(result, &workout.LeaderboardRow{
			AccountID: accountID,
			Username:  username,
			FullName:  fullName,
			Total:     total,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("WORKOUT_LEADERBOARD_FAILED").
			With("operation", "iterate leaderboard rows").
			Wrap(err)
	}
	return result, nil
}

// Compile-time interface check.
var _ workout.Repository = (*EntryRepository)(nil)
