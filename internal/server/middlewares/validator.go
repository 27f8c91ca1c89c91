package middlewares

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type structValidator struct {
	validate *validator.Validate
}

// NewValidator returns an echo.Validator backed by go-playground's validator.
// Field errors are rendered as validation errors named after the JSON fields.
func NewValidator() echo.Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("weburl", isWebURL)
	_ = validate.RegisterValidation("timeofday", isTimeOfDay)

	return &structValidator{validate: validate}
}

// Validate implements echo.Validator.
func (v *structValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "could not validate payload")
	}

	messages := make([]string, 0, len(verrs))
	for _, ferr := range verrs {
		messages = append(messages, message(ferr))
	}
	return apierror.Validation(strings.Join(messages, ", "))
}

func message(ferr validator.FieldError) string {
	field := ferr.Field()

	switch ferr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, ferr.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, ferr.Param())
	case "max":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, ferr.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", field, ferr.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, ferr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, ferr.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "weburl":
		return fmt.Sprintf("%s must be a valid http, https, ftp or ftps URL", field)
	case "timeofday":
		return fmt.Sprintf("%s must be formatted as HH:MM[:SS]", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, ferr.Tag())
	}
}

// isWebURL accepts absolute http(s) and ftp(s) URLs with a host.
func isWebURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ftps":
		return true
	default:
		return false
	}
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, layout := range []string{"15:04:05", "15:04"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
