// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, PULSEFIT_-prefixed environment variables, and command-line
// flags, in that order of precedence (later wins).
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/pulsefit/pulsefit/internal/auth"
)

// Challenge store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mailer backends.
const (
	MailerSMTP = "smtp"
	MailerLog  = "log"
)

// SMTPConfig holds mail delivery settings.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`

	// DatabaseURL and SigningKey are secrets; prefer setting them via
	// PULSEFIT_DATABASE_URL and PULSEFIT_SIGNING_KEY.
	DatabaseURL string `koanf:"database_url"`
	SigningKey  string `koanf:"signing_key"`

	ChallengeTTL   time.Duration `koanf:"challenge_ttl"`
	ChallengeStore string        `koanf:"challenge_store"`

	Mailer string     `koanf:"mailer"`
	SMTP   SMTPConfig `koanf:"smtp"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    "127.0.0.1:9100",
		LogFormat:      "json",
		LogLevel:       "info",
		ChallengeTTL:   auth.DefaultChallengeTTL,
		ChallengeStore: StorePostgres,
		Mailer:         MailerSMTP,
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// Load assembles configuration. path is an optional YAML file; flags is
// an optional flag set whose changed flags override everything else.
// Nested keys use "__" in environment variables (PULSEFIT_SMTP__HOST).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider("PULSEFIT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "PULSEFIT_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for serve mode.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http_addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (set PULSEFIT_DATABASE_URL)")
	}
	if len(c.SigningKey) < auth.MinSigningKeyBytes {
		return oops.Code("CONFIG_INVALID").
			With("min_bytes", auth.MinSigningKeyBytes).
			Errorf("signing_key must be at least %d bytes (set PULSEFIT_SIGNING_KEY)", auth.MinSigningKeyBytes)
	}
	if c.ChallengeTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("challenge_ttl must be positive")
	}
	if c.ChallengeStore != StorePostgres && c.ChallengeStore != StoreMemory {
		return oops.Code("CONFIG_INVALID").
			With("challenge_store", c.ChallengeStore).
			Errorf("challenge_store must be %q or %q", StorePostgres, StoreMemory)
	}
	switch c.Mailer {
	case MailerSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return oops.Code("CONFIG_INVALID").Errorf("smtp.host and smtp.from are required when mailer is %q", MailerSMTP)
		}
	case MailerLog:
		// No further settings.
	default:
		return oops.Code("CONFIG_INVALID").
			With("mailer", c.Mailer).
			Errorf("mailer must be %q or %q", MailerSMTP, MailerLog)
	}
	return nil
}
