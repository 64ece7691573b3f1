package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "EVENTDESK_"

// parseEnv overlays cfg with EVENTDESK_* variables. Values missing from the
// process environment are looked up in the dotenv file, when it exists.
func parseEnv(cfg *Config, lookup func(string) (string, bool), dotenv string) error {
	file := map[string]string{}
	if dotenv != "" {
		m, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			file = m
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("read %s: %w", dotenv, err)
		}
	}

	get := func(name string) (string, bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			return v, true
		}
		v, ok := file[EnvPrefix+name]
		return v, ok && v != ""
	}

	texts := map[string]*string{
		"SERVER_URL":   &cfg.ServerURL,
		"DATABASE":     &cfg.DatabasePath,
		"LOG_LEVEL":    &cfg.LogLevel,
		"METRICS_ADDR": &cfg.MetricsAddr,
	}
	for name, dst := range texts {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":      &cfg.RequestTimeout,
		"PERMISSION_TTL":       &cfg.PermissionTTL,
		"TICKET_CONFIRM_DELAY": &cfg.TicketConfirmDelay,
		"SYNC_INTERVAL":        &cfg.SyncInterval,
	}
	for name, dst := range durations {
		v, ok := get(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
