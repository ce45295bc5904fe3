// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Session is a server-held login session. The client only ever sees the
// opaque token inside the cookie; the database stores its SHA-256
// digest. Email, DisplayName and BirthDate are snapshots of the account
// at issuance time.
type Session struct { //nolint:govet // fieldalignment: readability over optimization
	ID          string       `db:"id" json:"id"`
	TokenHash   string       `db:"token_hash" json:"-"`
	Email       string       `db:"email" json:"email"`
	DisplayName string       `db:"display_name" json:"display_name"`
	BirthDate   sql.NullTime `db:"birth_date" json:"birth_date"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time    `db:"expires_at" json:"expires_at"`
}
