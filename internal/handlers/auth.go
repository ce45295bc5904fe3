// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/veriauth/veriauth/internal/middleware"
	"github.com/veriauth/veriauth/internal/services/auth"
	"github.com/veriauth/veriauth/internal/services/otp"
	"github.com/veriauth/veriauth/internal/services/session"
)

// birthDateLayout is the wire format for the dob field.
const birthDateLayout = "2006-01-02"

// AuthHandlers contains handlers for the registration and login flow.
type AuthHandlers struct {
	auth     *auth.Service
	sessions *session.Manager
	validate *validator.Validate
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authSvc *auth.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     authSvc,
		sessions: sessions,
		validate: validator.New(),
	}
}

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DOB      string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

// Register creates an unverified account and mails the first OTP.
// Registration never hands out a session; the account stays locked
// until the code is verified.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "name, email and password are required"})
	}

	params := auth.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.DOB != "" {
		dob, err := time.Parse(birthDateLayout, req.DOB)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "dob must be formatted as YYYY-MM-DD"})
		}
		params.BirthDate = &dob
	}

	err := h.auth.Register(c.Request().Context(), params)
	var pwdErr *auth.PasswordValidationError
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, map[string]string{
			"message": "User registered. Please verify OTP sent to email.",
		})
	case errors.Is(err, auth.ErrAccountExists):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already exists"})
	case errors.As(err, &pwdErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": pwdErr.Error()})
	case errors.Is(err, otp.ErrDelivery):
		slog.Error("failed to send OTP email", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error registering user"})
	default:
		slog.Error("failed to register user", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error registering user"})
	}
}

// VerifyOTPRequest is the request body for POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// VerifyOTP activates an account with the emailed code.
func (h *AuthHandlers) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "email and otp are required"})
	}

	err := h.auth.VerifyOTP(c.Request().Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Email verified successfully. You can now log in.",
		})
	case errors.Is(err, auth.ErrNotFound):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found"})
	case errors.Is(err, auth.ErrAlreadyVerified):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already verified"})
	case errors.Is(err, auth.ErrInvalidOTP):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid or expired OTP"})
	default:
		slog.Error("failed to verify OTP", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error verifying OTP"})
	}
}

// ResendOTPRequest is the request body for POST /auth/resend-otp.
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendOTP replaces the pending code with a fresh one and mails it.
func (h *AuthHandlers) ResendOTP(c echo.Context) error {
	var req ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "email is required"})
	}

	err := h.auth.ResendOTP(c.Request().Context(), req.Email)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"message": "OTP resent successfully."})
	case errors.Is(err, auth.ErrNotFound):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found"})
	case errors.Is(err, auth.ErrAlreadyVerified):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User already verified"})
	default:
		slog.Error("failed to resend OTP", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error resending OTP"})
	}
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and sets the session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "email and password are required"})
	}

	account, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
		// handled below
	case errors.Is(err, auth.ErrNotFound):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Incorrect password"})
	case errors.Is(err, auth.ErrNotVerified):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email not verified. Please verify OTP."})
	default:
		slog.Error("failed to log in user", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error logging in"})
	}

	cookie, err := h.sessions.Issue(c.Request().Context(), account)
	if err != nil {
		slog.Error("failed to create session", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error logging in"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user": map[string]string{
			"name":  account.DisplayName,
			"email": account.Email,
		},
	})
}

// Logout destroys the session and clears the cookie. Logging out
// without a session is fine; only a store failure is an error.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(c.Request().Context(), c.Request()); err != nil {
		slog.Error("failed to destroy session", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error logging out"})
	}
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Dashboard greets the logged-in user. RequireSession has already
// placed the session in the context.
func (h *AuthHandlers) Dashboard(c echo.Context) error {
	sess := middleware.SessionFromContext(c)
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Welcome to the dashboard, %s", sess.DisplayName),
	})
}
