// Package config loads runtime configuration for the eventdesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and EVENTDESK_* environment
//     variables; the process environment wins over the file.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   backend base URL
//	-d string   path to the local SQLite database
//	-l string   log level (debug, info, warn, error)
//	-m string   address for the metrics endpoint, empty to disable
//
// # JSON schema
//
// Durations use timex.Duration, so values may be strings like "30m" or
// integer nanoseconds:
//
//	{
//	  "server_url": "https://events.example.com/api",
//	  "database_path": "eventdesk.db",
//	  "request_timeout": "10s",
//	  "permission_ttl": "30m",
//	  "ticket_confirm_delay": "3s",
//	  "sync_interval": "2s",
//	  "log_level": "info",
//	  "metrics_addr": ""
//	}
package config
