package server

import (
	"net/http"
	"time"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/server/serializer"
	sessionpkg "github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type sess struct {
	db       database.Client
	sessions sessionpkg.Manager
}

// List lists all the sessions of the current user.
func (s *sess) List(c echo.Context) error {
	session := currentSession(c)
	user := currentUser(c)

	sessions, err := s.db.FindSessionsByUserID(user.ID)
	if err != nil {
		return errors.Wrap(err, "could not get sessions")
	}

	for _, s := range sessions {
		if s.ID == session.ID {
			s.Current = true
			break
		}
	}

	return c.JSON(http.StatusOK, serializer.Sessions(
		sessions,
		time.Duration(s.sessions.ExpiresIn())*time.Second,
		time.Duration(s.sessions.RefreshTokenExpiresIn())*time.Second,
	))
}

// Delete terminates the specified session by UUID.
func (s *sess) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == currentSession(c).ID {
		return apierror.BadRequest("You can not delete your current session.")
	}

	// Retrieve session
	session, err := s.db.FindSessionByUserID(id, currentUser(c).ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return apierror.NotFound("No session exists with the provided identifier.")
		}
		return errors.Wrap(err, "could not get user session")
	}

	if err = s.sessions.Destroy(session); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll terminates all sessions, except the current one.
func (s *sess) DeleteAll(c echo.Context) error {
	sessions, err := s.db.FindSessionsByUserID(currentUser(c).ID)
	if err != nil {
		return errors.Wrap(err, "could not get sessions")
	}

	current := currentSession(c)
	for _, session := range sessions {
		if session.ID == current.ID {
			continue
		}

		if err = s.sessions.Destroy(session); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}
