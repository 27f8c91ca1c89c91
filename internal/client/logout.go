package client

import (
	"github.com/pkg/errors"
)

// Logout terminates the stored session on the gateway.
func Logout() error {
	_, client, err := connect()
	if err != nil {
		return err
	}

	if err = client.Logout(); err != nil {
		return errors.Wrap(err, "could not logout")
	}

	return errors.Wrap(Remove(), "could not remove credential file")
}
