package middlewares

import (
	"net/http"
	"strings"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/labstack/echo/v4"
)

type binder struct {
	echo.DefaultBinder
	methodsWithBody map[string]bool
}

// NewBinder returns a JSON only binder.
// Path and query params are never bound, the handlers read them explicitly.
func NewBinder() echo.Binder {
	return &binder{
		methodsWithBody: map[string]bool{
			http.MethodPost:  true,
			http.MethodPatch: true,
			http.MethodPut:   true,
		},
	}
}

// Bind implements the echo.Bind interface.
func (b *binder) Bind(i any, c echo.Context) error {
	req := c.Request()
	if !b.methodsWithBody[req.Method] {
		return nil
	}

	if req.ContentLength == 0 {
		return apierror.BadRequest("Request body is empty.")
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return apierror.BadRequest("Request body must be JSON.")
	}
	return b.DefaultBinder.BindBody(c, i)
}
