// Package config centralizes all application configuration into typed structs.
//
// Configuration is layered: NewDefaultConfig supplies defaults, Load overlays
// an optional YAML file and then environment variables, and Validate rejects
// combinations the server cannot run with.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sharide/pkg/utils"
)

// Store drivers understood by the server.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the top-level configuration container.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Auth         AuthConfig         `yaml:"auth"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Directory    DirectoryConfig    `yaml:"directory"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and tunes the document store backend.
//
// DSN is a file path for sqlite and a connection URL for postgres; it is
// ignored for the memory driver.
type StoreConfig struct {
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	MaxConns    int32         `yaml:"max_conns"`
	MinConns    int32         `yaml:"min_conns"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

// AuthConfig controls bearer-token validation.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// LedgerConfig controls the rating ledger.
type LedgerConfig struct {
	// Timezone names the zone transaction dates are written in.
	Timezone string `yaml:"timezone"`
	// MinScore and MaxScore bound an individual rating.
	MinScore float64 `yaml:"min_score"`
	MaxScore float64 `yaml:"max_score"`
	// DuplicateWindow caps how long an in-flight rating from one rater to
	// one ratee blocks an identical overlapping submission.
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
}

// DirectoryConfig controls directory search.
type DirectoryConfig struct {
	// EmailSuffixes are the institutional domains that route a query to the
	// email field.
	EmailSuffixes []string `yaml:"email_suffixes"`
	// MemberFetchConcurrency bounds parallel user lookups for group members.
	MemberFetchConcurrency int `yaml:"member_fetch_concurrency"`
}

// ConnectivityConfig controls the store reachability probe.
type ConnectivityConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// NewDefaultConfig returns a Config populated with sensible defaults. The
// defaults run the whole server in memory with no external services.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Driver:      StoreMemory,
			MaxConns:    10,
			MinConns:    1,
			ConnTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:     "sharide-dev-secret",
			TokenDuration: 24 * time.Hour,
		},
		Ledger: LedgerConfig{
			Timezone:        utils.DefaultLedgerZone,
			MinScore:        0,
			MaxScore:        5,
			DuplicateWindow: 10 * time.Second,
		},
		Directory: DirectoryConfig{
			EmailSuffixes:          []string{"@graduate.utm.my", "@utm.my"},
			MemberFetchConcurrency: 8,
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: 5 * time.Second,
			ProbeTimeout:  2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and SHARIDE_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "SHARIDE_ADDR")
	if port := os.Getenv("SHARIDE_PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	setString(&c.Store.Driver, "SHARIDE_STORE_DRIVER")
	setString(&c.Store.DSN, "SHARIDE_STORE_DSN")
	setString(&c.Auth.JWTSecret, "SHARIDE_JWT_SECRET")
	setString(&c.Ledger.Timezone, "SHARIDE_LEDGER_TIMEZONE")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("SHARIDE_EMAIL_SUFFIXES"); v != "" {
		var suffixes []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				suffixes = append(suffixes, s)
			}
		}
		c.Directory.EmailSuffixes = suffixes
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SHARIDE_DUPLICATE_WINDOW", &c.Ledger.DuplicateWindow},
		{"SHARIDE_PROBE_INTERVAL", &c.Connectivity.ProbeInterval},
		{"SHARIDE_TOKEN_DURATION", &c.Auth.TokenDuration},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("SHARIDE_STORE_MAX_CONNS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHARIDE_STORE_MAX_CONNS: %w", err)
		}
		c.Store.MaxConns = int32(parsed)
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of %s, %s, %s (got %q)",
			StoreMemory, StoreSQLite, StorePostgres, c.Store.Driver)
	}
	if c.Store.MaxConns <= 0 {
		return errors.New("store.max_conns must be positive")
	}
	if c.Store.MinConns < 0 || c.Store.MinConns > c.Store.MaxConns {
		return errors.New("store.min_conns must be between 0 and store.max_conns")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenDuration <= 0 {
		return errors.New("auth.token_duration must be positive")
	}
	if c.Ledger.MaxScore <= c.Ledger.MinScore {
		return errors.New("ledger.max_score must be greater than ledger.min_score")
	}
	if c.Ledger.DuplicateWindow <= 0 {
		return errors.New("ledger.duplicate_window must be positive")
	}
	if _, err := utils.LoadLedgerLocation(c.Ledger.Timezone); err != nil {
		return err
	}
	if c.Directory.MemberFetchConcurrency <= 0 {
		return errors.New("directory.member_fetch_concurrency must be positive")
	}
	for _, s := range c.Directory.EmailSuffixes {
		if !strings.HasPrefix(s, "@") {
			return fmt.Errorf("directory.email_suffixes entry %q must start with @", s)
		}
	}
	if c.Connectivity.ProbeInterval <= 0 || c.Connectivity.ProbeTimeout <= 0 {
		return errors.New("connectivity probe interval and timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
