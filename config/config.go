// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with only a client secrets file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultScope allows reading, deleting and posting live chat messages.
const DefaultScope = "https://www.googleapis.com/auth/youtube.force-ssl"

type Config struct {
	AppName string

	// YouTube OAuth (installed app)
	SecretsFile string
	TokensDir   string
	YTScopes    string

	// Toxicity classifier
	ToxicHost    string
	ToxicPort    int
	ToxicTimeout time.Duration

	// Moderation loop
	PollInterval    time.Duration // fixed wait between fetches when HasPollInterval
	HasPollInterval bool
	Reason          string

	// Audit database (optional)
	DBDsn string

	// Health/metrics HTTP server; empty disables
	HTTPAddr string

	// Token file encryption (optional)
	EncryptionKey string
}

// Load reads environment variables and applies defaults. Optional variables that are
// missing disable features (audit DB, HTTP server, token encryption).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AppName = envOr("YTMOD_APP_NAME", "ytmod")

	cfg.SecretsFile = envOr("YT_CLIENT_SECRETS_FILE", "client_secret.json")
	cfg.TokensDir = envOr("YT_TOKENS_DIR", "tokens")
	cfg.YTScopes = envOr("YT_SCOPES", DefaultScope)

	cfg.ToxicHost = envOr("TOXIC_HOST", "localhost")
	port := envOr("TOXIC_PORT", "5000")
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid TOXIC_PORT %q: %w", port, err)
	}
	cfg.ToxicPort = p
	cfg.ToxicTimeout = 10 * time.Second
	if v := os.Getenv("TOXIC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOXIC_TIMEOUT (duration): %w", err)
		}
		cfg.ToxicTimeout = d
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL (duration): %w", err)
		}
		cfg.PollInterval = d
		cfg.HasPollInterval = true
	}
	cfg.Reason = os.Getenv("MODERATION_REASON")

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	if strings.EqualFold(cfg.HTTPAddr, "off") {
		cfg.HTTPAddr = ""
	}

	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")

	return cfg, nil
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	if c.SecretsFile == "" {
		return fmt.Errorf("missing YT_CLIENT_SECRETS_FILE")
	}
	if c.TokensDir == "" {
		return fmt.Errorf("missing YT_TOKENS_DIR")
	}
	if c.ToxicHost == "" {
		return fmt.Errorf("missing TOXIC_HOST")
	}
	if c.ToxicPort <= 0 || c.ToxicPort > 65535 {
		return fmt.Errorf("TOXIC_PORT out of range: %d", c.ToxicPort)
	}
	if c.HasPollInterval && c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative: %s", c.PollInterval)
	}
	if len(c.Scopes()) == 0 {
		return fmt.Errorf("YT_SCOPES is empty")
	}
	return nil
}

// Scopes splits YTScopes on commas and whitespace.
func (c *Config) Scopes() []string {
	return strings.Fields(strings.ReplaceAll(c.YTScopes, ",", " "))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
