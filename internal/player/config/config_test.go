package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.HubURL)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, "player:commands:", c.StreamPrefix)
	assert.Equal(t, "players", c.ConsumerGroup)
	assert.Equal(t, 5*time.Second, c.BlockTimeout)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	flag.CommandLine = flag.NewFlagSet("test", flag.PanicOnError)

	os.Args = []string{"playerd", "-i", "pi-1", "-n", "Lobby", "-m", "a@example.com", "-u", "http://hub:8080", "-g", ":6000", "-r", "redis:6379", "-c", "ignored.json"}

	cfg := &Config{}
	parseFlags(cfg)

	assert.Empty(t, cmp.Diff(&Config{
		DeviceID:     "pi-1",
		FriendlyName: "Lobby",
		MasterEmail:  "a@example.com",
		HubURL:       "http://hub:8080",
		GRPCAddr:     ":6000",
		RedisAddr:    "redis:6379",
	}, cfg))
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "playerd.json")
	raw, err := json.Marshal(map[string]any{
		"device_id":      "pi-7",
		"master_email":   "owner@example.com",
		"redis_db":       2,
		"block_timeout":  "250ms",
		"consumer_group": "lobby",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	os.Args = []string{"playerd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "pi-7", cfg.DeviceID)
	assert.Equal(t, "owner@example.com", cfg.MasterEmail)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 250*time.Millisecond, cfg.BlockTimeout)
	assert.Equal(t, "lobby", cfg.ConsumerGroup)
	assert.Equal(t, ":50051", cfg.GRPCAddr, "absent fields keep defaults")
}
