// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriauth/veriauth/internal/repository"
	"github.com/veriauth/veriauth/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	account := testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)

	assert.NotZero(t, account.ID)
	assert.False(t, account.Verified)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)

	dup := testutil.NewTestAccount(t, repo, "other@example.com", "Other", false)
	dup.ID = 0
	dup.Email = "jonas@example.com"
	err := repo.CreateAccount(ctx, dup)

	require.ErrorIs(t, err, repository.ErrConflict)

	// The uniqueness invariant holds: still exactly two accounts.
	count, err := repo.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGetAccountByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)

	account, err := repo.GetAccountByEmail(ctx, "jonas@example.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.Equal(t, "Jonas", account.DisplayName)
	assert.False(t, account.HasPendingOTP())
}

func TestGetAccountByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAccountByEmail(context.Background(), "nobody@example.com")

	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetAccountOTP(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)

	expiresAt := time.Now().Add(10 * time.Minute)
	require.NoError(t, repo.SetAccountOTP(ctx, account.ID, "digest-1", expiresAt))

	reloaded, err := repo.GetAccountByEmail(ctx, "jonas@example.com")
	require.NoError(t, err)
	require.True(t, reloaded.HasPendingOTP())
	assert.Equal(t, "digest-1", reloaded.OTPHash.String)
	assert.WithinDuration(t, expiresAt, reloaded.OTPExpiresAt.Time, time.Second)
}

func TestSetAccountOTP_ReplacesPending(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)

	require.NoError(t, repo.SetAccountOTP(ctx, account.ID, "digest-1", time.Now().Add(10*time.Minute)))
	require.NoError(t, repo.SetAccountOTP(ctx, account.ID, "digest-2", time.Now().Add(10*time.Minute)))

	reloaded, err := repo.GetAccountByEmail(ctx, "jonas@example.com")
	require.NoError(t, err)
	assert.Equal(t, "digest-2", reloaded.OTPHash.String)
}

func TestMarkAccountVerified(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "jonas@example.com", "Jonas", false)
	require.NoError(t, repo.SetAccountOTP(ctx, account.ID, "digest-1", time.Now().Add(10*time.Minute)))

	require.NoError(t, repo.MarkAccountVerified(ctx, account.ID))

	reloaded, err := repo.GetAccountByEmail(ctx, "jonas@example.com")
	require.NoError(t, err)
	assert.True(t, reloaded.Verified)
	// Verified accounts carry no pending OTP.
	assert.False(t, reloaded.HasPendingOTP())
}
