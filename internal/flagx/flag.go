// Package flagx lets several components parse their own subset of the
// command line without tripping over flags they do not define.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both "-c conf.json" and "-c=conf.json" forms are recognised; a
// following argument that starts with "-" is never taken as a value.
// The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := known[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := known[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigFile extracts the JSON config path given via -c or -config.
// It returns "" when neither is present.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
