package server

import (
	"net/http"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/server/service"
	"github.com/labstack/echo/v4"
)

// user contains all the handlers of the current user's account.
type user struct {
	users service.UserService
}

// Me renders the current user along with its profile.
func (h *user) Me(c echo.Context) error {
	me, err := h.users.Me(currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

// Update partially updates the current user and its profile.
func (h *user) Update(c echo.Context) error {
	// Filter params
	var params service.UpdateUserParams
	if err := c.Bind(&params); err != nil {
		return apierror.BadRequest("Could not get parameters.")
	}
	if err := c.Validate(&params); err != nil {
		return err
	}
	params.UserAgent = c.Request().UserAgent()
	params.Session = currentSession(c)

	me, err := h.users.Update(currentUser(c), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}

// Delete deletes the current user, its profile and all its sessions.
func (h *user) Delete(c echo.Context) error {
	if err := h.users.Delete(currentUser(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User deleted.",
	})
}
