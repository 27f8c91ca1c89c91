package client

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/42-Bangkok/gateway/pkg/gateway"
	"github.com/pkg/errors"
)

// Me prints the account of the stored session.
func Me() error {
	cfg, client, err := connect()
	if err != nil {
		return err
	}
	if err = Refresh(client, &cfg); err != nil {
		return err
	}

	me, err := client.Me()
	if err != nil {
		return errors.Wrap(err, "could not get current user")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", me.ID)
	fmt.Fprintf(w, "Username:\t%s\n", me.Username)
	fmt.Fprintf(w, "Email:\t%s\n", me.Email)
	fmt.Fprintf(w, "Name:\t%s %s\n", me.FirstName, me.LastName)
	if me.DOB != nil {
		fmt.Fprintf(w, "Birth date:\t%s\n", *me.DOB)
	}
	fmt.Fprintf(w, "Job title:\t%s\n", me.JobTitle)
	return w.Flush()
}

// Sessions prints the opened sessions of the stored session's user.
func Sessions() error {
	cfg, client, err := connect()
	if err != nil {
		return err
	}
	if err = Refresh(client, &cfg); err != nil {
		return err
	}

	sessions, err := client.Sessions()
	if err != nil {
		return errors.Wrap(err, "could not list sessions")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER AGENT\tEXPIRE AT\tCURRENT")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.ID, s.UserAgent, s.RefreshTokenExpireAt.Local().Format(time.RFC1123), s.Current)
	}
	return w.Flush()
}

// ForceRefresh gets a new access token for the stored session.
func ForceRefresh() error {
	cfg, client, err := connect()
	if err != nil {
		return err
	}

	return renew(client, &cfg)
}

func connect() (Config, gateway.Client, error) {
	cfg, err := Load()
	if err != nil {
		return cfg, nil, errors.Wrap(err, "could not load config")
	}

	client, err := gateway.NewDefaultClient(cfg.Endpoint)
	if err != nil {
		return cfg, nil, errors.Wrap(err, "could not reach gateway endpoint")
	}

	if cfg.Session.RefreshToken == "" {
		return cfg, nil, errors.New("session is not defined, please login")
	}
	client.SetSession(cfg.Session)

	return cfg, client, nil
}
