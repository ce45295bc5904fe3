// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp generates and issues one-time verification codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/veriauth/veriauth/internal/models"
	"github.com/veriauth/veriauth/internal/repository"
)

// Expiry is how long an issued code is valid.
const Expiry = 10 * time.Minute

// codeSpan covers the 6-digit range [100000, 999999].
const (
	codeMin  = 100000
	codeSpan = 900000
)

// ErrDelivery is returned when the code was persisted but could not be
// dispatched. The pending code stays on the account; resend is the
// recovery path.
var ErrDelivery = errors.New("OTP delivery failed")

// Mailer dispatches a code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Issuer generates codes and attaches them to accounts.
type Issuer struct {
	repo   *repository.Repository
	mailer Mailer
}

// NewIssuer creates a new Issuer.
func NewIssuer(repo *repository.Repository, mailer Mailer) *Issuer {
	return &Issuer{repo: repo, mailer: mailer}
}

// Generate returns a 6-digit code drawn uniformly from
// [100000, 999999] using crypto/rand. The code travels as a string and
// is never normalized.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generating OTP: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// HashCode computes the SHA-256 digest stored in place of the code.
func HashCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}

// Valid reports whether a presented code matches the stored digest and
// has not expired. Expiry is strict: a code presented at exactly
// expiresAt is already expired.
func Valid(storedHash string, expiresAt time.Time, code string, now time.Time) bool {
	if !now.Before(expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashCode(code))) == 1
}

// Issue generates a fresh code, persists its digest with a new expiry
// (replacing any pending code) and dispatches it to the account's email
// address. Dispatch failure is reported as ErrDelivery; the persisted
// code is kept so a resend can recover.
func (i *Issuer) Issue(ctx context.Context, account *models.Account) error {
	code, err := Generate()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(Expiry)
	if err := i.repo.SetAccountOTP(ctx, account.ID, HashCode(code), expiresAt); err != nil {
		return fmt.Errorf("storing OTP: %w", err)
	}

	if err := i.mailer.SendOTP(ctx, account.Email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return nil
}
