package middlewares

import (
	"sync"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// ServiceContextKey is the key to know from echo.Context that the caller is a trusted service.
const ServiceContextKey = "service"

// A ServiceAuthenticator checks the static bearer tokens of the trusted services.
// Tokens are never stored, only their argon2 hashes are configured.
type ServiceAuthenticator struct {
	hashes []string
	// verified caches the digest of the tokens already matched against a hash.
	verified sync.Map
}

// NewServiceAuthenticator returns a new ServiceAuthenticator for the given argon2 hashes.
func NewServiceAuthenticator(hashes []string) *ServiceAuthenticator {
	return &ServiceAuthenticator{
		hashes: hashes,
	}
}

// Authenticate returns true if token matches one of the configured hashes.
func (a *ServiceAuthenticator) Authenticate(token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	digest := blake2b.Sum256([]byte(token))
	if _, ok := a.verified.Load(digest); ok {
		return true, nil
	}

	for _, hash := range a.hashes {
		err := argon2.CompareHashAndPasswordString(hash, token)
		if err == nil {
			a.verified.Store(digest, struct{}{})
			return true, nil
		}
		if err != argon2.ErrMismatchedHashAndPassword {
			return false, errors.Wrap(err, "could not verify service token")
		}
	}
	return false, nil
}

// Service returns a service bearer token auth middleware.
func Service(a *ServiceAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := a.Authenticate(token(c.Request().Header.Get(echo.HeaderAuthorization)))
			if err != nil {
				return err
			}
			if !ok {
				return apierror.InvalidAuth()
			}

			c.Set(ServiceContextKey, true)
			return next(c)
		}
	}
}
