package server

import (
	"net/http"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/server/service"
	sessionpkg "github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/labstack/echo/v4"
)

type (
	// auth contains all authentication handlers.
	auth struct {
		users    service.UserService
		sessions sessionpkg.Manager
	}

	refreshParams struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
)

///// Login
////
//

// Login provisions the user of the asserted external identity and opens a new session.
// It is only callable by a trusted service.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get credentials.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}
	params.UserAgent = c.Request().UserAgent()

	login, err := h.users.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, login)
}

///// Logout
////
//

// Logout terminates the current session.
func (h *auth) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(currentSession(c)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

///// Refresh
////
//

// Refresh issues a new access token for the given refresh token.
// The refresh token is returned unchanged.
func (h *auth) Refresh(c echo.Context) error {
	// Filter params
	var params refreshParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Invalid request body.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	// Retrieve session
	session, err := h.sessions.ValidateRefreshToken(params.RefreshToken)
	if err != nil {
		if sessionpkg.IsAuthError(err) {
			return apierror.InvalidRefreshToken()
		}
		return err
	}

	ok, err := h.sessions.Refresh(session, params.RefreshToken)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.InvalidRefreshToken()
	}

	return c.JSON(http.StatusOK, service.M{
		"access_token":  session.AccessToken,
		"expires_in":    h.sessions.ExpiresIn(),
		"refresh_token": session.RefreshToken,
	})
}
