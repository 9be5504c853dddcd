package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/quorum/internal/domain"
)

// UserContextKey is where Auth stores the resolved *domain.User on the
// echo context.
const UserContextKey = "user"

// SessionName is the cookie-session bucket holding the caller's identity.
const SessionName = "session"

// Auth creates a middleware that protects routes requiring an
// authenticated caller. The external login flow stores the username in the
// cookie session; this middleware resolves it into a full user before the
// handler runs. Unauthenticated requests are rejected before any WebSocket
// upgrade is attempted.
func Auth(users domain.UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := session.Get(SessionName, c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			username, ok := sess.Values["username"].(string)
			if !ok || username == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			user, err := users.FindByUsername(c.Request().Context(), username)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
				}
				FromContext(c.Request().Context()).Error("Failed to resolve session user", "username", username, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}
