// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PULSEFIT_DATABASE_URL", "postgres://localhost:5432/pulsefit")
	t.Setenv("PULSEFIT_SIGNING_KEY", testSigningKey)
	t.Setenv("PULSEFIT_MAILER", "log")
}

func TestLoad_DefaultsWithEnvSecrets(t *testing.T) {
	validEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, StorePostgres, cfg.ChallengeStore)
	assert.Equal(t, "postgres://localhost:5432/pulsefit", cfg.DatabaseURL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"http_addr: \":9000\"\nlog_format: text\nchallenge_store: memory\n",
	), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, StoreMemory, cfg.ChallengeStore)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	validEnv(t)
	t.Setenv("PULSEFIT_LOG_FORMAT", "text")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_format: json\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_NestedEnvKeys(t *testing.T) {
	validEnv(t)
	t.Setenv("PULSEFIT_MAILER", "smtp")
	t.Setenv("PULSEFIT_SMTP__HOST", "smtp.example.com")
	t.Setenv("PULSEFIT_SMTP__FROM", "noreply@pulsefit.example")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, "noreply@pulsefit.example", cfg.SMTP.From)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	validEnv(t)
	t.Setenv("PULSEFIT_HTTP_ADDR", ":7000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("http_addr", "", "listen address")
	require.NoError(t, flags.Set("http_addr", ":7777"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTPAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	validEnv(t)
	_, err := Load("/does/not/exist.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.DatabaseURL = "postgres://localhost:5432/pulsefit"
		cfg.SigningKey = testSigningKey
		cfg.Mailer = MailerLog
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := valid()
		cfg.DatabaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("short signing key", func(t *testing.T) {
		cfg := valid()
		cfg.SigningKey = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad challenge store", func(t *testing.T) {
		cfg := valid()
		cfg.ChallengeStore = "redis"
		assert.Error(t, cfg.Validate())
	})

	t.Run("smtp mailer requires host and from", func(t *testing.T) {
		cfg := valid()
		cfg.Mailer = MailerSMTP
		assert.Error(t, cfg.Validate())

		cfg.SMTP.Host = "smtp.example.com"
		cfg.SMTP.From = "noreply@pulsefit.example"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad mailer", func(t *testing.T) {
		cfg := valid()
		cfg.Mailer = "pigeon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		cfg := valid()
		cfg.ChallengeTTL = 0
		assert.Error(t, cfg.Validate())
	})
}
