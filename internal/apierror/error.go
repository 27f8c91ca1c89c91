package apierror

import (
	"net/http"

	"github.com/pkg/errors"
)

type (
	// An Error represents the error format that can be rendered by the gateway.
	Error struct {
		HTTPCode   int   `json:"-"`
		FieldError field `json:"error"`
	}

	field struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// Tags rendered by the gateway.
const (
	TagInvalidAuth         = "invalid-auth"
	TagInvalidRefreshToken = "invalid-refresh-token"
	TagValidation          = "validation-error"
	TagNotFound            = "not-found"
	TagBadRequest          = "bad-request"
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new Error with the given message.
func New(message string) *Error {
	return &Error{FieldError: field{Message: message}}
}

// NewWithTagCode returns a new Error with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *Error {
	return &Error{HTTPCode: code, FieldError: field{Tag: tag, Message: message}}
}

// InvalidAuth is rendered for any missing, unknown or expired credential.
func InvalidAuth() *Error {
	return NewWithTagCode(http.StatusUnauthorized, TagInvalidAuth, "Invalid login credentials.")
}

// InvalidRefreshToken is rendered when a refresh is refused.
func InvalidRefreshToken() *Error {
	return NewWithTagCode(http.StatusUnauthorized, TagInvalidRefreshToken, "Invalid refresh token.")
}

// Validation is rendered when a payload does not satisfy its schema.
func Validation(message string) *Error {
	return NewWithTagCode(http.StatusUnprocessableEntity, TagValidation, message)
}

// NotFound is rendered when the requested record does not exist.
func NotFound(message string) *Error {
	return NewWithTagCode(http.StatusNotFound, TagNotFound, message)
}

// BadRequest is rendered when the request cannot be processed as is.
func BadRequest(message string) *Error {
	return NewWithTagCode(http.StatusBadRequest, TagBadRequest, message)
}

// Tag returns the error's tag.
func (e *Error) Tag() string {
	return e.FieldError.Tag
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.FieldError.Message
}
