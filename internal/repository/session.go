// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/veriauth/veriauth/internal/models"
)

// CreateSession inserts a new session row.
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_hash, email, display_name, birth_date, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.TokenHash, session.Email, session.DisplayName,
		session.BirthDate, session.ExpiresAt)
	return wrapError(err)
}

// GetSessionByTokenHash retrieves a session by the digest of its token.
func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return nil, wrapError(err)
	}
	return &session, nil
}

// DeleteSessionByTokenHash deletes a session by the digest of its token.
func (r *Repository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return wrapError(err)
}

// DeleteExpiredSessions deletes sessions whose expiry has passed.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	return wrapError(err)
}
