// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pulsefit/pulsefit/internal/auth"
	authpg "github.com/pulsefit/pulsefit/internal/auth/postgres"
	"github.com/pulsefit/pulsefit/internal/config"
	"github.com/pulsefit/pulsefit/internal/httpapi"
	"github.com/pulsefit/pulsefit/internal/logging"
	"github.com/pulsefit/pulsefit/internal/mail"
	"github.com/pulsefit/pulsefit/internal/observability"
	"github.com/pulsefit/pulsefit/internal/store"
	"github.com/pulsefit/pulsefit/internal/workout"
	workoutpg "github.com/pulsefit/pulsefit/internal/workout/postgres"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the PulseFit API server, which exposes the signup, login,
second-factor, and workout endpoints over JSON HTTP. Configuration comes
from the config file, PULSEFIT_-prefixed environment variables, and the
flags below, in increasing order of precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	// Flag names match config keys so posflag can layer them directly.
	cmd.Flags().String("http_addr", "", "API listen address")
	cmd.Flags().String("metrics_addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log_format", "", "log format (json or text)")
	cmd.Flags().String("log_level", "", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	logging.SetDefault("pulsefit", version, cfg.LogFormat, cfg.LogLevel)
	logger := slog.Default()

	logger.Info("starting api process",
		"http_addr", cfg.HTTPAddr,
		"log_format", cfg.LogFormat,
	)

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("connected to database")

	challenges, err := buildChallengeStore(cfg, pool)
	if err != nil {
		return err
	}
	sender, err := buildMailSender(cfg, logger)
	if err != nil {
		return err
	}

	issuer, err := auth.NewTokenIssuer([]byte(cfg.SigningKey))
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(
		authpg.NewAccountRepository(pool),
		challenges,
		auth.NewArgon2idHasher(),
		issuer,
		sender,
	)
	if err != nil {
		return err
	}
	authSvc.WithLogger(logger).WithChallengeTTL(cfg.ChallengeTTL)

	workoutSvc, err := workout.NewService(workoutpg.NewEntryRepository(pool))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if sweeper, ok := challenges.(*authpg.ChallengeStore); ok {
		go sweepExpiredChallenges(ctx, sweeper, logger)
	}

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.With("operation", "start observability server").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := httpapi.NewServer(cfg.HTTPAddr, authSvc, issuer, workoutSvc, logger, metrics)
	if err != nil {
		return err
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		if obsServer != nil {
			stopObservability(obsServer, logger)
		}
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("API server started")
	logger.Info("api process ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildChallengeStore selects the second-factor code store backend.
// The memory store is for single-instance deployments and local
// development; postgres is required once the API runs replicated.
func buildChallengeStore(cfg *config.Config, pool *pgxpool.Pool) (auth.ChallengeStore, error) {
	switch cfg.ChallengeStore {
	case config.StorePostgres:
		return authpg.NewChallengeStore(pool), nil
	case config.StoreMemory:
		return auth.NewMemoryChallengeStore(), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("challenge_store", cfg.ChallengeStore).
			Errorf("unknown challenge store backend %q", cfg.ChallengeStore)
	}
}

// buildMailSender selects the code delivery backend.
func buildMailSender(cfg *config.Config, logger *slog.Logger) (auth.CodeSender, error) {
	switch cfg.Mailer {
	case config.MailerSMTP:
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	case config.MailerLog:
		return mail.NewLogSender(logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("mailer", cfg.Mailer).
			Errorf("unknown mailer backend %q", cfg.Mailer)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error, so a failed listener brings the whole process down
// for a clean restart. It exits when an error arrives, the channel
// closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}

// challengeSweepInterval is how often expired second-factor rows are
// reclaimed. Expired rows are already unusable; this is housekeeping.
const challengeSweepInterval = time.Minute

func sweepExpiredChallenges(ctx context.Context, challenges *authpg.ChallengeStore, logger *slog.Logger) {
	ticker := time.NewTicker(challengeSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := challenges.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("failed to sweep expired challenges", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("swept expired challenges", "count", n)
			}
		}
	}
}

func stopObservability(obsServer *observability.Server, logger *slog.Logger) {
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := obsServer.Stop(stopCtx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}
