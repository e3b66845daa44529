// Package config loads runtime settings for playerd, the agent running on
// each display device.
package config

import "time"

// Config holds runtime settings for the player agent.
//
// Fields:
//   - DeviceID / FriendlyName: identity announced to the hub.
//   - MasterEmail: owner announced on boot. Empty skips the announce.
//   - HubURL: base URL of the PlayerHub HTTP API.
//   - GRPCAddr: bind address for direct commands from the hub.
//   - RedisAddr / RedisPassword / RedisDB / StreamPrefix: durable command
//     stream, must match the hub's settings.
//   - ConsumerGroup: Redis consumer group; the device id is the consumer name.
//   - BlockTimeout: how long one stream read waits for new entries.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DeviceID     string
	FriendlyName string
	MasterEmail  string
	HubURL       string
	GRPCAddr     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StreamPrefix  string
	ConsumerGroup string
	BlockTimeout  time.Duration

	RequestTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.DeviceID = ""
	c.FriendlyName = ""
	c.MasterEmail = ""
	c.HubURL = "http://127.0.0.1:8080"
	c.GRPCAddr = ":50051"

	c.RedisAddr = "127.0.0.1:6379"
	c.StreamPrefix = "player:commands:"
	c.ConsumerGroup = "players"
	c.BlockTimeout = 5 * time.Second

	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the optional JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
