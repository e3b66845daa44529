package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/flagx"
)

// ValueFlags are the flags that consume the following argument. The CLI
// skips them when it looks for the subcommand.
var ValueFlags = []string{"-a", "-t", "-s", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the PlayerHub API
//	-t int      request timeout in seconds
//	-s string   session token file
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the PlayerHub API")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionFile, "s", cfg.SessionFile, "session token file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
