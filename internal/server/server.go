// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/veriauth/veriauth/internal/config"
	"github.com/veriauth/veriauth/internal/database"
	"github.com/veriauth/veriauth/internal/handlers"
	"github.com/veriauth/veriauth/internal/middleware"
	"github.com/veriauth/veriauth/internal/repository"
	"github.com/veriauth/veriauth/internal/services/auth"
	"github.com/veriauth/veriauth/internal/services/email"
	"github.com/veriauth/veriauth/internal/services/otp"
	"github.com/veriauth/veriauth/internal/services/session"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database; failure here aborts startup.
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Mail
	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	// Sessions
	if cfg.Session.HashKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate session hash key: %w", err)
		}
		cfg.Session.HashKey = hex.EncodeToString(key)
		slog.Warn("no session hash key configured, generated an ephemeral one; existing cookies will not survive a restart")
	}
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure, repo)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	if err := sessions.PurgeExpired(ctx); err != nil {
		slog.Warn("failed to purge expired sessions", "error", err)
	}

	// Services
	issuer := otp.NewIssuer(repo, mailer)
	authSvc := auth.NewService(repo, issuer)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, authSvc, sessions)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, authSvc *auth.Service, sessions *session.Manager) {
	h := handlers.New()
	ah := handlers.NewAuth(authSvc, sessions)

	e.GET("/health", h.Health)

	g := e.Group("/auth")
	g.POST("/register", ah.Register)
	g.POST("/verify-otp", ah.VerifyOTP)
	g.POST("/resend-otp", ah.ResendOTP)
	g.POST("/login", ah.Login)
	g.POST("/logout", ah.Logout)
	g.GET("/dashboard", ah.Dashboard, middleware.RequireSession(sessions))
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
		return err
	}
	return nil
}
