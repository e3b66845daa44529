package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/flagx"
	"github.com/dmitrijs2005/playerhub/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Absent fields keep the value
// already present in Config.
type JsonConfig struct {
	DeviceID     string `json:"device_id"`
	FriendlyName string `json:"friendly_name"`
	MasterEmail  string `json:"master_email"`
	HubURL       string `json:"hub_url"`
	GRPCAddr     string `json:"grpc_addr"`

	RedisAddr     string         `json:"redis_addr"`
	RedisPassword string         `json:"redis_password"`
	RedisDB       int            `json:"redis_db"`
	StreamPrefix  string         `json:"stream_prefix"`
	ConsumerGroup string         `json:"consumer_group"`
	BlockTimeout  timex.Duration `json:"block_timeout"`

	RequestTimeout timex.Duration `json:"request_timeout"`
	LogLevel       string         `json:"log_level"`
}

func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.DeviceID, c.DeviceID)
	setString(&config.FriendlyName, c.FriendlyName)
	setString(&config.MasterEmail, c.MasterEmail)
	setString(&config.HubURL, c.HubURL)
	setString(&config.GRPCAddr, c.GRPCAddr)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setString(&config.StreamPrefix, c.StreamPrefix)
	setString(&config.ConsumerGroup, c.ConsumerGroup)
	setDuration(&config.BlockTimeout, c.BlockTimeout)

	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
