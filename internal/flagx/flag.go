// Package flagx lets several components share os.Args. Each one parses only
// the flags it owns, and subcommand-style binaries pull out the positional
// words separately.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags, together with
// their values. Both "-c conf.json" and "-c=conf.json" forms are kept; a
// following token that starts with '-' is never taken as a value.
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// Positional returns the arguments that are not flags. valueFlags lists the
// flags that take a separate value, so that value is skipped too. Everything
// after a bare "--" is positional.
//
//	Positional([]string{"-a", "http://hub", "claim", "pi-1"}, []string{"-a"})
//	// => ["claim", "pi-1"]
func Positional(args []string, valueFlags []string) []string {
	takesValue := make(map[string]struct{}, len(valueFlags))
	for _, f := range valueFlags {
		takesValue[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return append(out, args[i+1:]...)
		case !strings.HasPrefix(arg, "-") || arg == "-":
			out = append(out, arg)
		case strings.Contains(arg, "="):
		default:
			if _, ok := takesValue[arg]; ok && i+1 < len(args) {
				i++
			}
		}
	}
	return out
}

// JsonConfigFlags returns the config file path given with -c or -config,
// or "" when neither is present. Other flags are ignored.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
