package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/42-Bangkok/gateway/internal/config"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/logger"
	"github.com/42-Bangkok/gateway/internal/server"
	"github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/labstack/echo/v4"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &cobra.Command{
		Use:          "gateway",
		Short:        "42 Bangkok gateway backend",
		Version:      fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	c.PersistentFlags().StringVarP(&cfg, "config", "c", "", "Configuration file")

	c.AddCommand(initCmd)
	c.AddCommand(reindexCmd)
	c.AddCommand(migrateCmd)
	c.AddCommand(pruneCmd)
	c.AddCommand(hashTokenCmd)
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		os.Exit(1)
	}
}

func load() (*config.Config, *logrus.Logger, error) {
	konf, err := config.Load(cfg)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(konf.Log)
	if err != nil {
		return nil, nil, err
	}
	return konf, log, nil
}

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, log, err := load()
			if err != nil {
				return err
			}

			switch konf.Database.Driver {
			case database.DriverSQLite:
				err = database.SQLiteMigrate(konf.Database.Path)
			default:
				err = database.StormInit(konf.Database.Path, konf.Database.Codec)
			}
			if err != nil {
				return err
			}

			log.WithField("path", konf.Database.Path).Info("database initialized")
			return nil
		},
	}

	//
	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Reindex the database (storm only)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, log, err := load()
			if err != nil {
				return err
			}

			if konf.Database.Driver != database.DriverStorm {
				return errors.Errorf("reindex is not supported by the %s driver", konf.Database.Driver)
			}

			if err = database.StormReIndex(konf.Database.Path, konf.Database.Codec); err != nil {
				return err
			}

			log.WithField("path", konf.Database.Path).Info("database reindexed")
			return nil
		},
	}

	//
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the pending schema migrations (sqlite only)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, log, err := load()
			if err != nil {
				return err
			}

			if konf.Database.Driver != database.DriverSQLite {
				return errors.Errorf("migrate is not supported by the %s driver", konf.Database.Driver)
			}

			if err = database.SQLiteMigrate(konf.Database.Path); err != nil {
				return err
			}

			log.WithField("path", konf.Database.Path).Info("database migrated")
			return nil
		},
	}

	//
	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete the sessions whose refresh token is expired",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, log, err := load()
			if err != nil {
				return err
			}

			db, err := database.Open(konf.Database)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			sessions := session.NewManager(db, konf.AccessTokenTTL, konf.RefreshTokenTTL, konf.TokenLength)
			n, err := sessions.Prune()
			if err != nil {
				return err
			}

			log.WithField("count", n).Info("sessions pruned")
			return nil
		},
	}

	//
	hashTokenCmd = &cobra.Command{
		Use:   "hash-token [TOKEN]",
		Short: "Hash a service token for the service.token_hashes setting",
		Long:  "Hash a service token for the service.token_hashes setting.\nA random token is generated when none is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			token := session.SecureToken(session.DefaultTokenLength)
			if len(args) == 1 {
				token = args[0]
			}

			hash, err := argon2.GenerateFromPasswordString(token, argon2.Default)
			if err != nil {
				return errors.Wrap(err, "could not hash token")
			}

			fmt.Println("token:", token)
			fmt.Println("hash: ", hash)
			return nil
		},
	}

	//
	//
	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Start server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, log, err := load()
			if err != nil {
				return err
			}

			if err = konf.Validate(); err != nil {
				return err
			}

			db, err := database.Open(konf.Database)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.IOC{
				Version:                    version,
				Database:                   db,
				Logger:                     log,
				Providers:                  konf.Providers,
				ServiceTokenHashes:         konf.ServiceTokenHashes,
				AccessTokenExpirationTime:  konf.AccessTokenTTL,
				RefreshTokenExpirationTime: konf.RefreshTokenTTL,
				TokenLength:                konf.TokenLength,
				RefreshRateLimit:           konf.RefreshRateLimit,
				AllowOrigins:               konf.AllowOrigins,
			})
			server.PrintRoutes(engine)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				errc <- serve(engine, konf.Address, log)
			}()

			select {
			case err = <-errc:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return errors.Wrap(engine.Shutdown(ctx), "could not shutdown server")
		},
	}
)

func serve(engine *echo.Echo, address string, log logrus.FieldLogger) error {
	message := "could not run server"
	log.WithField("address", address).Info("server listening")

	parts := strings.Split(address, ":")
	if len(parts) == 2 && parts[0] == "unix" {
		socketFile := parts[1]
		if _, err := os.Stat(socketFile); err == nil {
			log.WithField("socket", socketFile).Info("removing existing socket")
			os.Remove(socketFile)
		}
		defer os.Remove(socketFile)

		listener, err := net.Listen(parts[0], socketFile)
		if err != nil {
			return err
		}
		err = engine.Server.Serve(listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, message)
	}

	err := engine.Start(address)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, message)
}
