// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		sender, err := NewSMTPSender(SMTPConfig{
			Host: "smtp.example.com",
			Port: 587,
			From: "noreply@pulsefit.example",
		})
		require.NoError(t, err)
		assert.NotNil(t, sender)
		assert.Equal(t, DefaultSendTimeout, sender.cfg.Timeout)
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := NewSMTPSender(SMTPConfig{Port: 587, From: "noreply@pulsefit.example"})
		assert.Error(t, err)
	})

	t.Run("missing port", func(t *testing.T) {
		_, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@pulsefit.example"})
		assert.Error(t, err)
	})

	t.Run("missing from", func(t *testing.T) {
		_, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587})
		assert.Error(t, err)
	})
}

func TestSMTPSender_SendCode_Unreachable(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1, // nothing listens here
		From:    "noreply@pulsefit.example",
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	err = sender.SendCode(context.Background(), "a@example.com", "123456")
	require.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("noreply@pulsefit.example", "a@example.com", "123456")
	assert.Contains(t, msg, "To: a@example.com")
	assert.Contains(t, msg, "Your verification code is: 123456")
	assert.Contains(t, msg, "expires in 5 minutes")
	// Headers and body must be separated by a blank line.
	assert.Contains(t, msg, "\r\n\r\n")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	sender := NewLogSender(logger)
	require.NoError(t, sender.SendCode(context.Background(), "a@example.com", "123456"))

	out := buf.String()
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, "123456")
}
