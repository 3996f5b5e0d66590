// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit/internal/workout"
)

func TestEntryRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("successful insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry, err := workout.NewEntry(ulid.Make(), "pushups", 25)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO workout_entries`).
			WithArgs(entry.ID.String(), entry.AccountID.String(), "pushups", 25, entry.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewEntryRepository(mock)
		require.NoError(t, repo.Create(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry, err := workout.NewEntry(ulid.Make(), "pushups", 25)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO workout_entries`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		repo := NewEntryRepository(mock)
		require.Error(t, repo.Create(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_ListByAccount(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "account_id", "exercise", "count", "created_at"}

	t.Run("returns entries newest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		accountID := ulid.Make()
		now := time.Now()
		rows := pgxmock.NewRows(columns).
			AddRow(ulid.Make().String(), accountID.String(), "pushups", 30, now).
			AddRow(ulid.Make().String(), accountID.String(), "squats", 20, now.Add(-time.Hour))
		mock.ExpectQuery(`SELECT (.+) FROM workout_entries`).
			WithArgs(accountID.String()).
			WillReturnRows(rows)

		repo := NewEntryRepository(mock)
		entries, err := repo.ListByAccount(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "pushups", entries[0].Exercise)
		assert.Equal(t, 30, entries[0].Count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entries yields empty slice", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		accountID := ulid.Make()
		mock.ExpectQuery(`SELECT (.+) FROM workout_entries`).
			WithArgs(accountID.String()).
			WillReturnRows(pgxmock.NewRows(columns))

		repo := NewEntryRepository(mock)
		entries, err := repo.ListByAccount(ctx, accountID)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.NotNil(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt id in row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		accountID := ulid.Make()
		rows := pgxmock.NewRows(columns).
			AddRow("not-a-ulid", accountID.String(), "pushups", 30, time.Now())
		mock.ExpectQuery(`SELECT (.+) FROM workout_entries`).
			WithArgs(accountID.String()).
			WillReturnRows(rows)

		repo := NewEntryRepository(mock)
		_, err = repo.ListByAccount(ctx, accountID)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_Leaderboard(t *testing.T) {
	ctx := context.Background()
	columns := []string{"account_id", "username", "full_name", "total"}

	t.Run("returns ranked totals", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		first := ulid.Make()
		second := ulid.Make()
		rows := pgxmock.NewRows(columns).
			AddRow(first.String(), "ada", "Ada Lovelace", int64(120)).
			AddRow(second.String(), "grace", "Grace Hopper", int64(95))
		mock.ExpectQuery(`SELECT (.+) FROM workout_entries`).
			WithArgs("pushups", 10).
			WillReturnRows(rows)

		repo := NewEntryRepository(mock)
		board, err := repo.Leaderboard(ctx, "pushups", 10)
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, first, board[0].AccountID)
		assert.Equal(t, int64(120), board[0].Total)
		assert.Equal(t, "grace", board[1].Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT (.+) FROM workout_entries`).
			WithArgs("pushups", 10).
			WillReturnError(errors.New("connection refused"))

		repo := NewEntryRepository(mock)
		_, err = repo.Leaderboard(ctx, "pushups", 10)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
