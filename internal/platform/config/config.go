// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Kreative ID API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis) backing the postage outbox
	RedisURL string `env:"REDIS_URL,required"`

	// KeychainSecret signs and verifies every keychain token. Rotating it
	// invalidates all outstanding keychains.
	KeychainSecret string `env:"KEYCHAIN_SECRET,required"`

	// KeychainTTL is the validity window embedded in each keychain.
	KeychainTTL time.Duration `env:"KEYCHAIN_TTL" envDefault:"720h"`

	// DedupExemptKSNs lists accounts whose older keychains survive a new sign-in.
	DedupExemptKSNs []int64 `env:"DEDUP_EXEMPT_KSNS" envSeparator:"," envDefault:"57427833"`

	// HostAIDN is the application id of the Kreative ID console itself.
	// Administrative routes only accept keychains minted for it.
	HostAIDN int64 `env:"HOST_AIDN" envDefault:"0"`

	// AdminPermissions grants access to administrative routes (any one suffices).
	AdminPermissions []string `env:"ADMIN_PERMISSIONS" envSeparator:"," envDefault:"KREATIVE_ID_ADMIN,KREATIVE_ID_DEVELOPER"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Outbound mail envelope defaults
	MailFrom    string `env:"MAIL_FROM"     envDefault:"\"Kreative\" <mailgun@mail.kreativeusa.com>"`
	MailReplyTo string `env:"MAIL_REPLY_TO" envDefault:"support@kreativeusa.com"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// validate enforces cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	if len(c.KeychainSecret) < 32 {
		return errors.New("KEYCHAIN_SECRET must be at least 32 bytes")
	}
	if c.KeychainTTL <= 0 {
		return errors.New("KEYCHAIN_TTL must be positive")
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsOriginAllowed reports whether origin appears in the CORS allow-list.
func (c *Config) IsOriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
