// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/veriauth/veriauth/internal/models"
)

// CreateAccount inserts a new account. The UNIQUE index on email makes
// this the arbiter for concurrent registrations: the loser gets
// ErrConflict.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, display_name, password_hash, birth_date, verified, otp_hash, otp_expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.Email, account.DisplayName, account.PasswordHash,
		account.BirthDate, account.Verified, account.OTPHash, account.OTPExpiresAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

// GetAccountByEmail retrieves an account by its email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// SetAccountOTP replaces the pending OTP digest and its expiry. Any
// previously issued code stops validating immediately.
func (r *Repository) SetAccountOTP(ctx context.Context, id int64, otpHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET otp_hash = ?, otp_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		otpHash, expiresAt, id)
	return wrapError(err)
}

// MarkAccountVerified flips the account to verified and clears the
// pending OTP in the same statement.
func (r *Repository) MarkAccountVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET verified = 1, otp_hash = NULL, otp_expires_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id)
	return wrapError(err)
}

// CountAccounts returns the total number of accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM accounts`); err != nil {
		return 0, err
	}
	return count, nil
}
