// Package config loads runtime configuration for playerctl.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags -a (server URL), -t (timeout seconds), -s (session file).
//
// JSON durations go through timex.Duration, so "40s" and integer
// nanoseconds both work:
//
//	{
//	  "server_url": "https://hub.example.com",
//	  "request_timeout": "40s",
//	  "session_file": "/tmp/playerhub-session.json"
//	}
package config
