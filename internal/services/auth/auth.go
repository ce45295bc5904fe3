// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the registration and login flow: an account
// is created unverified, activates through an emailed one-time code and
// only then may log in.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/veriauth/veriauth/internal/models"
	"github.com/veriauth/veriauth/internal/repository"
	"github.com/veriauth/veriauth/internal/services/otp"
)

// Flow errors, surfaced unchanged to the HTTP layer.
var (
	ErrAccountExists      = errors.New("account already exists")
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrNotVerified        = errors.New("email not verified")
)

// dummyHash keeps login timing uniform when no account matches the
// given email.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Service orchestrates register, verify, resend and login.
type Service struct {
	repo      *repository.Repository
	otp       *otp.Issuer
	passwords *PasswordValidator
}

// NewService creates a new auth service.
func NewService(repo *repository.Repository, issuer *otp.Issuer) *Service {
	return &Service{
		repo:      repo,
		otp:       issuer,
		passwords: DefaultPasswordValidator(),
	}
}

// RegisterParams are the inputs for creating an account.
type RegisterParams struct {
	Name      string
	Email     string
	Password  string
	BirthDate *time.Time
}

// Register creates an unverified account and issues the first OTP.
// Registration never authenticates; the caller gets an acceptance, not
// a session. Returns ErrAccountExists if the email is taken, a
// *PasswordValidationError for weak passwords, and otp.ErrDelivery if
// the account was created but the mail could not be sent.
func (s *Service) Register(ctx context.Context, params RegisterParams) error {
	if result := s.passwords.Validate(params.Password, params.Name, params.Email); !result.Valid {
		return &PasswordValidationError{Errors: result.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	account := &models.Account{
		Email:        params.Email,
		DisplayName:  params.Name,
		PasswordHash: string(passwordHash),
	}
	if params.BirthDate != nil {
		account.BirthDate = sql.NullTime{Time: *params.BirthDate, Valid: true}
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAccountExists
		}
		return fmt.Errorf("creating account: %w", err)
	}

	return s.otp.Issue(ctx, account)
}

// VerifyOTP activates an account if the presented code matches the
// pending one and has not expired. Wrong code and expired code collapse
// into the same ErrInvalidOTP so the caller cannot tell which check
// failed.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	if account.Verified {
		return ErrAlreadyVerified
	}

	if !account.HasPendingOTP() {
		return ErrInvalidOTP
	}

	if !otp.Valid(account.OTPHash.String, account.OTPExpiresAt.Time, code, time.Now()) {
		return ErrInvalidOTP
	}

	if err := s.repo.MarkAccountVerified(ctx, account.ID); err != nil {
		return fmt.Errorf("marking account verified: %w", err)
	}

	return nil
}

// ResendOTP issues a fresh code for an unverified account. The previous
// code is overwritten and stops validating immediately.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("looking up account: %w", err)
	}

	if account.Verified {
		return ErrAlreadyVerified
	}

	return s.otp.Issue(ctx, account)
}

// Login checks the credentials and verification state. An unverified
// account never gets past this, no matter how correct the password is.
// The caller mints the session for the returned account.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a bcrypt comparison to
			// prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, ErrNotVerified
	}

	return account, nil
}
