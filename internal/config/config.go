// Package config loads the gateway configuration from a YAML file overlaid by GATEWAY_* environment variables.
package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/logger"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of the environment variables overriding the configuration file.
// A double underscore separates nested keys (e.g. GATEWAY_SESSION__TOKEN_LENGTH).
const EnvPrefix = "GATEWAY_"

var dbnames = map[string]string{
	database.DriverStorm:  "gateway.db",
	database.DriverSQLite: "gateway.sqlite3",
}

var defaults = map[string]any{
	"address":                   "localhost:5000",
	"database.driver":           database.DriverStorm,
	"database.codec":            "msgpack",
	"providers":                 []string{model.ProviderFortyTwo},
	"session.access_token_ttl":  model.AccessTokenTTL.String(),
	"session.refresh_token_ttl": model.RefreshTokenTTL.String(),
	"session.token_length":      32,
	"refresh_rate_limit":        10,
	"log.level":                 "info",
	"log.format":                logger.FormatText,
}

// A Config holds the settings of the gateway binaries.
type Config struct {
	Address            string
	Database           database.Options
	Providers          []string
	ServiceTokenHashes []string
	// Session params
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	TokenLength      int
	RefreshRateLimit float64
	AllowOrigins     []string
	Log              logger.Options
}

// Load reads the configuration file, if any, then the environment.
func Load(filename string) (*Config, error) {
	konf := koanf.New(".")
	if err := konf.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "could not load defaults")
	}

	if filename != "" {
		if err := konf.Load(file.Provider(filename), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration file")
		}
	}

	err := konf.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load environment")
	}

	return parse(konf)
}

func parse(konf *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Address: konf.String("address"),
		Database: database.Options{
			Driver: konf.String("database.driver"),
			Codec:  konf.String("database.codec"),
		},
		Providers:          list(konf, "providers"),
		ServiceTokenHashes: list(konf, "service.token_hashes"),
		TokenLength:        konf.Int("session.token_length"),
		RefreshRateLimit:   konf.Float64("refresh_rate_limit"),
		AllowOrigins:       list(konf, "cors.allow_origins"),
		Log: logger.Options{
			Level:      konf.String("log.level"),
			Format:     konf.String("log.format"),
			File:       konf.String("log.file"),
			MaxSize:    konf.Int("log.max_size"),
			MaxBackups: konf.Int("log.max_backups"),
			MaxAge:     konf.Int("log.max_age"),
		},
	}

	dbname, ok := dbnames[cfg.Database.Driver]
	if !ok {
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	cfg.Database.Path = dbname
	if path := konf.String("database.path"); path != "" {
		cfg.Database.Path = filepath.Join(path, dbname)
	}

	var err error
	cfg.AccessTokenTTL, err = duration(konf, "session.access_token_ttl")
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = duration(konf, "session.refresh_token_ttl")
	if err != nil {
		return nil, err
	}

	if cfg.TokenLength <= 0 {
		return nil, errors.New("session.token_length must be positive")
	}
	return cfg, nil
}

// Validate checks the settings required to run the server.
func (c *Config) Validate() error {
	if len(c.ServiceTokenHashes) == 0 {
		return errors.New("service.token_hashes not found")
	}
	if len(c.Providers) == 0 {
		return errors.New("providers not found")
	}
	return nil
}

// list reads a YAML sequence or a comma separated string.
func list(konf *koanf.Koanf, path string) []string {
	if v, ok := konf.Get(path).(string); ok {
		var values []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
		return values
	}
	return konf.Strings(path)
}

// duration reads a Go duration string or an amount of seconds.
func duration(konf *koanf.Koanf, path string) (time.Duration, error) {
	var d time.Duration
	switch v := konf.Get(path).(type) {
	case int:
		d = time.Duration(v) * time.Second
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		s := konf.String(path)
		if n, err := strconv.Atoi(s); err == nil {
			s = strconv.Itoa(n) + "s"
		}

		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid %s", path)
		}
	}

	if d <= 0 {
		return 0, errors.Errorf("%s must be positive", path)
	}
	return d, nil
}
