package client

import (
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/pkg/gateway"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

// Login opens a session on the gateway on behalf of a cadet.
// It requires the token of a trusted service.
func Login() error {
	cfg := Config{}

	endpoint, err := readline.Line("Endpoint: ")
	if err != nil {
		return errors.Wrap(err, "could not read endpoint from stdin")
	}
	cfg.Endpoint = endpoint

	client, err := gateway.NewDefaultClient(cfg.Endpoint)
	if err != nil {
		return errors.Wrap(err, "could not reach given endpoint")
	}

	token, err := readline.Password("Service token: ")
	if err != nil {
		return errors.Wrap(err, "could not read service token from stdin")
	}
	client.SetServiceToken(string(token))

	credentials := gateway.Credentials{Provider: model.ProviderFortyTwo}
	credentials.UID, err = readline.Line("Login: ")
	if err != nil {
		return errors.Wrap(err, "could not read login from stdin")
	}
	credentials.Email, err = readline.Line("Email (optional): ")
	if err != nil {
		return errors.Wrap(err, "could not read email from stdin")
	}

	cfg.Session, err = client.Login(credentials)
	if err != nil {
		return errors.Wrap(err, "could not login")
	}

	return Save(cfg)
}
