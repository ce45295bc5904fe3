// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veriauth/veriauth/internal/models"
	"github.com/veriauth/veriauth/internal/services/session"
)

// sessionKey is the echo context key for the resolved session.
const sessionKey = "session"

// RequireSession guards protected routes: the request must carry a
// live session cookie or it is rejected with 401 before the handler
// runs.
func RequireSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := sessions.FromRequest(c.Request().Context(), c.Request())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": "Unauthorized. Please log in first.",
				})
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// SessionFromContext returns the session placed by RequireSession, or
// nil on unguarded routes.
func SessionFromContext(c echo.Context) *models.Session {
	sess, _ := c.Get(sessionKey).(*models.Session)
	return sess
}
