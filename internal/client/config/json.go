package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/eventdesk/internal/flagx"
	"github.com/dmitrijs2005/eventdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the corresponding Config value unchanged.
type JsonConfig struct {
	ServerURL          *string         `json:"server_url"`
	DatabasePath       *string         `json:"database_path"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	PermissionTTL      *timex.Duration `json:"permission_ttl"`
	TicketConfirmDelay *timex.Duration `json:"ticket_confirm_delay"`
	SyncInterval       *timex.Duration `json:"sync_interval"`
	LogLevel           *string         `json:"log_level"`
	MetricsAddr        *string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the file named by -c or -config in args. No
// flag means no change.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PermissionTTL != nil {
		cfg.PermissionTTL = jc.PermissionTTL.Duration
	}
	if jc.TicketConfirmDelay != nil {
		cfg.TicketConfirmDelay = jc.TicketConfirmDelay.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
