// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Account is a registered identity. Email is unique and immutable after
// creation. OTPHash and OTPExpiresAt are set together while a
// verification cycle is open and cleared together once the account is
// verified; the code itself is never stored, only its SHA-256 digest.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64          `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	DisplayName  string         `db:"display_name" json:"display_name"`
	PasswordHash string         `db:"password_hash" json:"-"`
	BirthDate    sql.NullTime   `db:"birth_date" json:"birth_date"`
	Verified     bool           `db:"verified" json:"verified"`
	OTPHash      sql.NullString `db:"otp_hash" json:"-"`
	OTPExpiresAt sql.NullTime   `db:"otp_expires_at" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPendingOTP reports whether a verification cycle is open.
func (a *Account) HasPendingOTP() bool {
	return a.OTPHash.Valid && a.OTPExpiresAt.Valid
}
