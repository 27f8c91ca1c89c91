package gateway

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// An APIError represents an HTTP error returned by the gateway.
type APIError struct {
	StatusCode int
	Err        struct {
		Tag     string `json:"tag"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(r io.Reader, code int) error {
	var apierr APIError
	dec := json.NewDecoder(r)
	if err := dec.Decode(&apierr); err != nil {
		return errors.Errorf("unexpected status code %d", code)
	}
	apierr.StatusCode = code
	return &apierr
}

func (e *APIError) Error() string {
	return e.Err.Message
}
