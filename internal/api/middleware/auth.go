// Package middleware provides HTTP middleware for the facade.
package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	seclog "github.com/welldanyogia/webrana-infinimail-backend/internal/logger"
)

// authSkipPaths lists the path prefixes that never require a bearer token
// even when global user auth is enabled: the endpoints a client needs to
// discover whether auth is on, and to obtain a token in the first place.
var authSkipPaths = []string{
	"/api/auth/status",
	"/api/auth/login",
	"/api/auth/register",
	"/health",
	"/ready",
}

// BearerAuth validates a bearer token issued by access.Controller against
// every request, except the skip-listed discovery/login/register/health
// endpoints. It is a no-op when global auth is disabled — per-mailbox
// password verification is handled independently by each handler.
func BearerAuth(controller *access.Controller, logger *slog.Logger) echo.MiddlewareFunc {
	var security *seclog.SecurityLogger
	if logger != nil {
		security = seclog.NewSecurityLoggerWithHandler(logger.Handler())
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if controller == nil || !controller.AuthEnabled() {
				return next(c)
			}

			path := c.Path()
			for _, skip := range authSkipPaths {
				if strings.HasPrefix(path, skip) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				if security != nil {
					security.InvalidToken(c.RealIP(), path)
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "unauthorized",
					"code":  "unauthorized",
				})
			}

			userEmail, err := controller.VerifyToken(token)
			if err != nil {
				if security != nil {
					security.InvalidToken(c.RealIP(), path)
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "unauthorized",
					"code":  "unauthorized",
				})
			}

			c.Set("user_email", userEmail)
			return next(c)
		}
	}
}
