package middlewares

import (
	"strings"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/labstack/echo/v4"
)

const (
	// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
	CurrentUserContextKey = "current_user"
	// CurrentSessionContextKey is the key to retrieve the current_session from echo.Context.
	CurrentSessionContextKey = "current_session"
)

// Session returns a Session auth middleware.
// It stores current_session and current_user into echo.Context.
func Session(m session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := token(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return apierror.InvalidAuth()
			}

			// Unknown and expired tokens must not be distinguishable.
			current, user, err := m.Authenticate(token)
			if err != nil {
				if session.IsAuthError(err) {
					return apierror.InvalidAuth()
				}
				return err
			}

			c.Set(CurrentSessionContextKey, current)
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}

func token(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
