// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

// Package mail delivers second-factor codes to users.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/samber/oops"

	"github.com/pulsefit/pulsefit/internal/auth"
)

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds the whole dial-and-send exchange.
	Timeout time.Duration
}

// DefaultSendTimeout is used when SMTPConfig.Timeout is zero.
const DefaultSendTimeout = 10 * time.Second

// SMTPSender delivers codes over SMTP with PLAIN auth.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		return nil, oops.Errorf("smtp port is required")
	}
	if cfg.From == "" {
		return nil, oops.Errorf("smtp from address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSendTimeout
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendCode emails the verification code. The context deadline, if any,
// tightens the configured timeout.
func (s *SMTPSender) SendCode(ctx context.Context, to, code string) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	timeout := s.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return oops.Code(auth.CodeChallengeDelivery).Wrap(ctx.Err())
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "dial smtp").
			With("addr", addr).
			Wrap(err)
	}
	// The deadline covers the SMTP exchange, not just the dial.
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "set deadline").
			Wrap(err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "smtp handshake").
			Wrap(err)
	}
	defer client.Close()

	if s.cfg.Username != "" {
		authMech := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(authMech); err != nil {
			return oops.Code(auth.CodeChallengeDelivery).
				With("operation", "smtp auth").
				Wrap(err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "smtp mail from").
			Wrap(err)
	}
	if err := client.Rcpt(to); err != nil {
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "smtp rcpt to").
			Wrap(err)
	}

	w, err := client.Data()
	if err != nil {
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "smtp data").
			Wrap(err)
	}
	if _, err := fmt.Fprint(w, buildMessage(s.cfg.From, to, code)); err != nil {
		w.Close()
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "write message").
			Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.Code(auth.CodeChallengeDelivery).
			With("operation", "close message").
			Wrap(err)
	}

	return client.Quit()
}

// buildMessage assembles the RFC 5322 message body.
func buildMessage(from, to, code string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your PulseFit verification code\r\n\r\n"+
			"Your verification code is: %s\r\n\r\nThis code expires in 5 minutes.\r\n",
		from, to, code,
	)
}

// LogSender writes codes to the log instead of delivering them. Dev
// mode only; it defeats the second factor in production.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendCode logs the code.
func (s *LogSender) SendCode(_ context.Context, to, code string) error {
	s.logger.Info("verification code issued", "to", to, "code", code)
	return nil
}

// Compile-time interface checks.
var (
	_ auth.CodeSender = (*SMTPSender)(nil)
	_ auth.CodeSender = (*LogSender)(nil)
)
