// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the PulseFit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pulsefit",
		Short: "PulseFit - fitness tracking backend",
		Long: `PulseFit is a fitness tracking backend with password plus
email-code two-factor authentication, workout logging, and leaderboards.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
