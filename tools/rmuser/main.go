package main

import (
	"fmt"
	"log"

	"github.com/42-Bangkok/gateway/internal/config"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	var cfg string

	c := &cobra.Command{
		Use:   "rmuser USERNAME",
		Short: "Remove a user, its profile and its sessions from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			fmt.Println("Opening", konf.Database.Path)
			db, err := database.Open(konf.Database)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			// Fetch user
			user, err := db.FindUserByUsername(args[0])
			if err != nil {
				if db.IsNotFound(err) {
					fmt.Println("No account for this username")
					return nil
				}
				return errors.Wrap(err, "find user by username")
			}

			fmt.Println("User found:", user.ID)

			// Profile and sessions are deleted along
			if err = db.Delete(user); err != nil {
				return errors.Wrap(err, "delete user")
			}
			fmt.Println("User removed")

			return nil
		},
	}
	c.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}
