package middlewares

import (
	"fmt"
	"net/http"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler returns a middleware that formats rendered errors.
func HTTPErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var herr *echo.HTTPError
		var aerr *apierror.Error

		switch {
		case errors.As(err, &aerr):
			if aerr.HTTPCode < 500 {
				_ = c.JSON(aerr.HTTPCode, aerr)
				return
			}
			internal(logger, err, c)
		case errors.As(err, &herr):
			if herr.Code >= 500 {
				internal(logger, err, c)
				return
			}
			if herr.Internal != nil {
				logger.WithError(herr.Internal).Debug("echo error")
			}
			_ = c.JSON(herr.Code, echo.Map{
				"error": echo.Map{
					"message": fmt.Sprint(herr.Message),
				},
			})
		default:
			internal(logger, err, c)
		}
	}
}

func internal(logger logrus.FieldLogger, err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	logger.WithFields(logrus.Fields{
		"error_id": id,
		"method":   c.Request().Method,
		"uri":      c.Request().RequestURI,
	}).WithError(err).Error("unexpected error")

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"error": echo.Map{
			"message": fmt.Sprintf("Unexpected error (id: %s)", id),
		},
	})
}
