package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	var c Config
	c.LoadDefaults()
	return &c
}

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:3000/api", c.ServerURL)
	assert.Equal(t, 30*time.Minute, c.PermissionTTL)
	assert.Equal(t, 3*time.Second, c.TicketConfirmDelay)
	require.NoError(t, c.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := load(nil, noEnv, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"EVENTDESK_SERVER_URL=http://from-dotenv:3000\n"+
			"EVENTDESK_LOG_LEVEL=debug\n"+
			"EVENTDESK_SYNC_INTERVAL=5s\n"), 0o600))

	jsonPath := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"server_url":     "https://from-json.example",
		"permission_ttl": "10m",
		"database_path":  "/tmp/json.db",
	})

	env := envOf(map[string]string{
		"EVENTDESK_LOG_LEVEL":    "warn",
		"EVENTDESK_DATABASE":     "/tmp/env.db",
		"EVENTDESK_METRICS_ADDR": ":9100",
	})
	args := []string{"-c", jsonPath, "-d", "/tmp/flag.db", "-unknown", "x"}

	cfg, err := load(args, env, dotenv)
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "https://from-json.example"
	want.LogLevel = "warn"
	want.SyncInterval = 5 * time.Second
	want.PermissionTTL = 10 * time.Minute
	want.DatabasePath = "/tmp/flag.db"
	want.MetricsAddr = ":9100"
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, ".env")

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad env duration", env: map[string]string{"EVENTDESK_REQUEST_TIMEOUT": "soon"}},
		{name: "missing json file", args: []string{"-config", filepath.Join(dir, "nope.json")}},
		{name: "relative server url", args: []string{"-a", "localhost:3000"}},
		{name: "zero sync interval", env: map[string]string{"EVENTDESK_SYNC_INTERVAL": "0s"}},
		{name: "zero permission ttl", env: map[string]string{"EVENTDESK_PERMISSION_TTL": "0s"}},
		{name: "negative permission ttl", env: map[string]string{"EVENTDESK_PERMISSION_TTL": "-1m"}},
		{name: "negative confirm delay", env: map[string]string{"EVENTDESK_TICKET_CONFIRM_DELAY": "-5s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.args, envOf(tt.env), missing)
			require.Error(t, err)
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg := defaults()
	require.NoError(t, parseFlags(cfg, []string{"-a", "https://x.example", "-l=error", "-m", ":9000", "-c", "ignored.json"}))

	want := defaults()
	want.ServerURL = "https://x.example"
	want.LogLevel = "error"
	want.MetricsAddr = ":9000"
	assert.Empty(t, cmp.Diff(want, cfg))
}
