package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the eventdesk CLI.
//
// PermissionTTL bounds how long an edit-permission decision is trusted.
// TicketConfirmDelay is the wait before re-confirming a paid ticket after a
// checkout callback. SyncInterval is how often the session polls the local
// store for changes made by other processes.
type Config struct {
	ServerURL          string
	DatabasePath       string
	RequestTimeout     time.Duration
	PermissionTTL      time.Duration
	TicketConfirmDelay time.Duration
	SyncInterval       time.Duration
	LogLevel           string
	MetricsAddr        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000/api"
	c.DatabasePath = "eventdesk.db"
	c.RequestTimeout = 10 * time.Second
	c.PermissionTTL = 30 * time.Minute
	c.TicketConfirmDelay = 3 * time.Second
	c.SyncInterval = 2 * time.Second
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q: must be an absolute http(s) URL", c.ServerURL)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.PermissionTTL <= 0 {
		return fmt.Errorf("permission ttl must be positive")
	}
	if c.TicketConfirmDelay < 0 {
		return fmt.Errorf("ticket confirm delay must not be negative")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment, an optional
// JSON file and the process's command-line flags, in that order.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv, ".env")
}

func load(args []string, lookup func(string) (string, bool), dotenv string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, lookup, dotenv); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
