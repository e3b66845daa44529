package config

import "time"

// Config holds runtime settings for playerctl.
//
// Fields:
//   - ServerURL: base URL of the PlayerHub HTTP API.
//   - RequestTimeout: upper bound for one API call. Commands may wait for
//     both the direct attempt and the queue fallback, so keep it above 30s.
//   - SessionFile: where the session token is cached. Empty means
//     <user config dir>/playerhub/session.json.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	SessionFile    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 40 * time.Second
	c.SessionFile = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
