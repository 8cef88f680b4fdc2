// Package config loads runtime settings from flags, ZALOGA_* environment
// variables, and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

// Prefix is the environment variable prefix.
const Prefix = "ZALOGA"

// ErrHelpWanted is returned by Load when usage was requested.
var ErrHelpWanted = conf.ErrHelpWanted

// Config holds all runtime settings.
type Config struct {
	conf.Version
	Args conf.Args

	Addr string `conf:"default::8080,short:a,help:listen address"`

	DB struct {
		Driver string `conf:"default:sqlite,enum:sqlite|postgres"`
		DSN    string `conf:"default:zaloga.sqlite3,mask,help:SQLite path or Postgres URL"`
	}

	Admin struct {
		Username string `conf:"default:ADMIN,help:admin username created on first run"`
	}

	Log struct {
		Path       string `conf:"help:also write logs to this file"`
		Level      string `conf:"default:info,enum:debug|info|warn|error"`
		Format     string `conf:"default:text,enum:text|json"`
		MaxSizeMB  int    `conf:"default:50"`
		MaxBackups int    `conf:"default:5"`
	}

	Notify struct {
		Backend  string `conf:"default:local,enum:local|redis|postgres"`
		RedisURL string `conf:"default:redis://localhost:6379,mask"`
	}

	Web struct {
		SecureCookies  bool     `conf:"default:false"`
		CORSOrigins    []string `conf:"default:*"`
		LoginRateLimit int      `conf:"default:10,help:login attempts per IP per minute"`
	}
}

// Load parses configuration. On ErrHelpWanted the returned string holds
// the usage text.
func Load(build string) (*Config, string, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := Config{
		Version: conf.Version{
			Build: build,
			Desc:  "zaloga: spare part and machine inventory",
		},
	}

	help, err := conf.Parse(Prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return nil, help, ErrHelpWanted
		}
		return nil, "", fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, "", nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []string

	if c.Notify.Backend == "postgres" && c.DB.Driver != "postgres" {
		errs = append(errs, "notify backend postgres requires db driver postgres")
	}
	if c.DB.DSN == "" {
		errs = append(errs, "db dsn must not be empty")
	}
	if c.Web.LoginRateLimit < 1 {
		errs = append(errs, "login rate limit must be at least 1")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	out, err := conf.String(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return out
}
