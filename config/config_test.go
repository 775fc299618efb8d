package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YTMOD_APP_NAME", "YT_CLIENT_SECRETS_FILE", "YT_TOKENS_DIR", "YT_SCOPES",
		"TOXIC_HOST", "TOXIC_PORT", "TOXIC_TIMEOUT", "POLL_INTERVAL",
		"MODERATION_REASON", "DB_DSN", "HTTP_ADDR", "ENCRYPTION_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AppName != "ytmod" {
		t.Errorf("AppName = %q, want ytmod", cfg.AppName)
	}
	if cfg.SecretsFile != "client_secret.json" || cfg.TokensDir != "tokens" {
		t.Errorf("unexpected secrets/tokens defaults: %q %q", cfg.SecretsFile, cfg.TokensDir)
	}
	if cfg.ToxicHost != "localhost" || cfg.ToxicPort != 5000 {
		t.Errorf("unexpected classifier defaults: %s:%d", cfg.ToxicHost, cfg.ToxicPort)
	}
	if cfg.HasPollInterval {
		t.Errorf("expected provider-advised interval by default")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
	if got := cfg.Scopes(); len(got) != 1 || got[0] != DefaultScope {
		t.Errorf("Scopes() = %v, want [%s]", got, DefaultScope)
	}
}

func TestLoadPollInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "5s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.HasPollInterval || cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v (set=%v), want 5s", cfg.PollInterval, cfg.HasPollInterval)
	}

	t.Setenv("POLL_INTERVAL", "0s")
	cfg, _ = Load()
	if !cfg.HasPollInterval || cfg.PollInterval != 0 {
		t.Errorf("explicit zero interval should be kept as an override")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad port", "TOXIC_PORT", "http"},
		{"bad interval", "POLL_INTERVAL", "soon"},
		{"bad timeout", "TOXIC_TIMEOUT", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, _ := Load()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port out of range", func(c *Config) { c.ToxicPort = 70000 }},
		{"negative interval", func(c *Config) { c.PollInterval, c.HasPollInterval = -time.Second, true }},
		{"no scopes", func(c *Config) { c.YTScopes = " , " }},
		{"no secrets", func(c *Config) { c.SecretsFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() expected error")
			}
		})
	}
}

func TestScopesParsing(t *testing.T) {
	tests := []struct {
		scopes  string
		wantLen int
	}{
		{"scope1", 1},
		{"scope1,scope2,scope3", 3},
		{"scope1 scope2 scope3", 3},
		{"scope1, scope2 scope3", 3},
	}
	for _, tt := range tests {
		c := &Config{YTScopes: tt.scopes}
		if got := len(c.Scopes()); got != tt.wantLen {
			t.Errorf("Scopes(%q) len = %d, want %d", tt.scopes, got, tt.wantLen)
		}
	}
}

func TestHTTPAddrOff(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "off")
	cfg, _ := Load()
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want disabled", cfg.HTTPAddr)
	}
}
