// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pulsefit/pulsefit/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its up/down/version
// verbs. Unlike serve, migrate only needs the database URL, so it reads
// PULSEFIT_DATABASE_URL (or --database-url) instead of loading the full
// configuration.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long:  `Apply, roll back, or inspect the embedded PostgreSQL schema migrations.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (default: PULSEFIT_DATABASE_URL)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(databaseURL, func(m *store.Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}

	var force bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops all tables and data)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return oops.Code("MIGRATION_REFUSED").
					Errorf("migrate down drops all tables and data; re-run with --force to confirm")
			}
			return withMigrator(databaseURL, func(m *store.Migrator) error {
				cmd.Println("Rolling back migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&force, "force", false, "confirm the destructive rollback")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(databaseURL, func(m *store.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("version: %d (dirty: a migration failed partway, manual repair needed)\n", v)
					return nil
				}
				cmd.Printf("version: %d\n", v)
				return nil
			})
		},
	}

	cmd.AddCommand(up)
	cmd.AddCommand(down)
	cmd.AddCommand(versionCmd)

	return cmd
}

// withMigrator resolves the database URL, opens a Migrator, runs fn,
// and closes the migrator afterwards.
func withMigrator(databaseURL string, fn func(*store.Migrator) error) error {
	if databaseURL == "" {
		databaseURL = os.Getenv("PULSEFIT_DATABASE_URL")
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (set PULSEFIT_DATABASE_URL or --database-url)")
	}

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	return fn(m)
}
