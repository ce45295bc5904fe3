// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/veriauth/veriauth/internal/config"
)

// parseConfig runs the flag set against the given arguments and returns
// the resulting config.
func parseConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	var cfg *config.Config
	cmd := &cli.Command{
		Name:  "test",
		Flags: config.Flags(),
		Action: func(_ context.Context, c *cli.Command) error {
			cfg = config.NewFromCLI(c)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	require.NotNil(t, cfg)
	return cfg
}

func TestNewFromCLI_Defaults(t *testing.T) {
	cfg := parseConfig(t)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "./data/veriauth.db", cfg.Database.DSN)
	assert.Equal(t, "_session", cfg.Session.CookieName)
	assert.Equal(t, 86400, cfg.Session.MaxAge)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
}

func TestNewFromCLI_ExplicitBaseURL(t *testing.T) {
	cfg := parseConfig(t, "--base-url", "https://auth.example.com")

	assert.Equal(t, "https://auth.example.com", cfg.Server.BaseURL)
}

func TestNewFromCLI_BaseURLHidesDefaultPort(t *testing.T) {
	cfg := parseConfig(t, "--host", "auth.example.com", "--port", "80")

	assert.Equal(t, "http://auth.example.com", cfg.Server.BaseURL)
}

func TestNewFromCLI_CORSOrigins(t *testing.T) {
	cfg := parseConfig(t, "--cors-origins", "http://localhost:5173", "--cors-origins", "https://app.example.com")

	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.Server.CORSOrigins)
}

func TestNewFromCLI_SMTPSettings(t *testing.T) {
	cfg := parseConfig(t,
		"--smtp-host", "mail.example.com",
		"--smtp-port", "465",
		"--smtp-from", "noreply@example.com",
		"--smtp-tls=false",
	)

	assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "noreply@example.com", cfg.SMTP.From)
	assert.False(t, cfg.SMTP.TLS)
}
