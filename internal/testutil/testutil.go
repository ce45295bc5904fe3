// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/veriauth/veriauth/internal/config"
	"github.com/veriauth/veriauth/internal/database"
	"github.com/veriauth/veriauth/internal/models"
	"github.com/veriauth/veriauth/internal/repository"
	"github.com/veriauth/veriauth/internal/services/session"
)

// TestPassword is the plaintext password used for accounts created with
// NewTestAccount.
const TestPassword = "orange-elephant"

// testHashKey is a 32-byte hex key for session managers in tests.
const testHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates an account with a bcrypt hash of TestPassword.
func NewTestAccount(t *testing.T, repo *repository.Repository, email, name string, verified bool) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.Account{
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		Verified:     verified,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// NewSessionManager creates a session manager backed by the given
// repository, with a one hour lifetime.
func NewSessionManager(t *testing.T, repo *repository.Repository) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(&config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     3600,
		HashKey:    testHashKey,
	}, false, repo)
	require.NoError(t, err)
	return mgr
}

// FakeMailer records OTP dispatches instead of talking to an SMTP
// server. Set Err to simulate delivery failure.
type FakeMailer struct {
	To    []string
	Codes []string
	Err   error
}

// SendOTP implements otp.Mailer.
func (f *FakeMailer) SendOTP(_ context.Context, to, code string) error {
	if f.Err != nil {
		return f.Err
	}
	f.To = append(f.To, to)
	f.Codes = append(f.Codes, code)
	return nil
}

// LastCode returns the most recently dispatched code.
func (f *FakeMailer) LastCode() string {
	if len(f.Codes) == 0 {
		return ""
	}
	return f.Codes[len(f.Codes)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
