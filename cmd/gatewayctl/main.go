package main

import (
	"fmt"
	"os"

	"github.com/42-Bangkok/gateway/internal/client"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"
)

func main() {
	c := &cobra.Command{
		Use:     "gatewayctl",
		Short:   "42 Bangkok gateway client",
		Version: fmt.Sprintf("%s - build %.7s @ %s", version, revision, date),
		Args:    cobra.NoArgs,
	}
	c.AddCommand(loginCmd)
	c.AddCommand(logoutCmd)
	c.AddCommand(refreshCmd)
	c.AddCommand(meCmd)
	c.AddCommand(sessionsCmd)

	if err := c.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Open a session on behalf of a cadet (service token required)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Login()
		},
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Terminate the stored session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Logout()
		},
	}

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Get a new access token for the stored session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return client.ForceRefresh()
		},
	}

	meCmd = &cobra.Command{
		Use:   "me",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Me()
		},
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "List the opened sessions of the current user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return client.Sessions()
		},
	}
)
