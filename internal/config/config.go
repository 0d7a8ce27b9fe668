// Package config holds client configuration: defaults overridden by environment, then flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadFromEnvironment.
const (
	EnvAPIURL         = "CLEAR_API_URL"
	EnvConfigDir      = "CLEAR_CONFIG_DIR"
	EnvPageSize       = "CLEAR_PAGE_SIZE"
	EnvNotifyDuration = "CLEAR_NOTIFY_DURATION"
	EnvHTTPTimeout    = "CLEAR_HTTP_TIMEOUT"
	EnvDebug          = "CLEAR_DEBUG"
)

// Config holds all client options.
type Config struct {
	APIURL         string
	ConfigDir      string
	PageSize       int
	NotifyDuration time.Duration
	HTTPTimeout    time.Duration // 0 leaves timeouts to the transport
	Debug          bool
}

// New returns a configuration with defaults.
func New() *Config {
	return &Config{
		APIURL:         "http://localhost:8080/api",
		ConfigDir:      defaultDir(),
		PageSize:       10,
		NotifyDuration: 3 * time.Second,
	}
}

func defaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "clear")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "clear")
}

// LoadFromEnvironment overrides fields from CLEAR_* variables.
func (c *Config) LoadFromEnvironment() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvConfigDir); v != "" {
		c.ConfigDir = v
	}
	if v := os.Getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPageSize, err)
		}
		c.PageSize = n
	}
	if v := os.Getenv(EnvNotifyDuration); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvNotifyDuration, err)
		}
		c.NotifyDuration = d
	}
	if v := os.Getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHTTPTimeout, err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks the values after all overrides were applied.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url must be http(s): %q", c.APIURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be greater than zero")
	}
	if c.ConfigDir == "" {
		return fmt.Errorf("config dir is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

// SessionPath returns the location of the persisted session entry.
func (c *Config) SessionPath() string { return filepath.Join(c.ConfigDir, "session.json") }
