// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session manages server-held login sessions. The client holds
// an opaque random token inside a signed cookie; the database stores
// the token's SHA-256 digest, so logout revocation works across
// restarts and a leaked database does not leak usable tokens.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/veriauth/veriauth/internal/config"
	"github.com/veriauth/veriauth/internal/models"
	"github.com/veriauth/veriauth/internal/repository"
)

// tokenLength is the number of random bytes per session token.
const tokenLength = 32

// ErrNoSession is returned when a request carries no live session.
var ErrNoSession = errors.New("no valid session")

// Manager issues, validates and destroys sessions.
type Manager struct {
	repo       *repository.Repository
	sc         *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewManager creates a session manager. HashKey must be a 32- or
// 64-byte hex string; BlockKey is optional and enables cookie
// encryption on top of signing.
func NewManager(cfg *config.SessionConfig, secure bool, repo *repository.Repository) (*Manager, error) {
	if cfg.HashKey == "" {
		return nil, fmt.Errorf("session hash key is required")
	}
	hashKey, err := hex.DecodeString(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if len(hashKey) != 32 && len(hashKey) != 64 {
		return nil, fmt.Errorf("session hash key must be 32 or 64 bytes, got %d", len(hashKey))
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey, err = hex.DecodeString(cfg.BlockKey)
		if err != nil {
			return nil, fmt.Errorf("invalid session block key: %w", err)
		}
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(cfg.MaxAge)

	return &Manager{
		repo:       repo,
		sc:         sc,
		cookieName: cfg.CookieName,
		maxAge:     time.Duration(cfg.MaxAge) * time.Second,
		secure:     secure,
	}, nil
}

// Issue mints a new session bound to the account's identity, display
// name and birth date, and returns the cookie carrying the token.
func (m *Manager) Issue(ctx context.Context, account *models.Account) (*http.Cookie, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now()
	session := &models.Session{
		ID:          uuid.New().String(),
		TokenHash:   hashToken(token),
		Email:       account.Email,
		DisplayName: account.DisplayName,
		BirthDate:   account.BirthDate,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.maxAge),
	}
	if err := m.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	encoded, err := m.sc.Encode(m.cookieName, token)
	if err != nil {
		return nil, fmt.Errorf("encoding session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// FromRequest resolves the session carried by the request. Missing,
// tampered, unknown and expired cookies all come back as ErrNoSession.
func (m *Manager) FromRequest(ctx context.Context, r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var token string
	if err := m.sc.Decode(m.cookieName, cookie.Value, &token); err != nil {
		return nil, ErrNoSession
	}

	session, err := m.repo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if !time.Now().Before(session.ExpiresAt) {
		_ = m.repo.DeleteSessionByTokenHash(ctx, session.TokenHash)
		return nil, ErrNoSession
	}

	return session, nil
}

// Destroy deletes the session referenced by the request's cookie. A
// missing or invalid cookie is not an error; logout is idempotent.
// Only a store failure comes back as an error.
func (m *Manager) Destroy(ctx context.Context, r *http.Request) error {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil
	}

	var token string
	if err := m.sc.Decode(m.cookieName, cookie.Value, &token); err != nil {
		return nil
	}

	if err := m.repo.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// Clear returns an expired cookie that removes the session cookie from
// the client.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// PurgeExpired removes sessions whose expiry has passed.
func (m *Manager) PurgeExpired(ctx context.Context) error {
	return m.repo.DeleteExpiredSessions(ctx)
}

// hashToken computes the SHA-256 digest stored in place of the token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
