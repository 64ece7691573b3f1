package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/eventdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Arguments other than -a, -d, -l and -m are ignored so that -c/-config can
// be handled by parseJson.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("eventdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	return fs.Parse(flagx.FilterArgs(args, []string{"-a", "-d", "-l", "-m"}))
}
