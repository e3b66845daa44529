package config

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-r", "redis:6379", "-m", "smtp.local", "-l", "10",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			expected: &Config{
				HTTPAddr:       "127.0.0.1:9090",
				DatabaseDSN:    "db",
				SecretKey:      "secret",
				RedisAddr:      "redis:6379",
				SMTPHost:       "smtp.local",
				RateLimitMax:   10,
				S3RootUser:     "user",
				S3RootPassword: "password",
				S3Bucket:       "bucket",
				S3Region:       "us-west-1",
				S3BaseEndpoint: "http://endpoint",
			},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"cmd", "-c", "conf.json", "-x", "1", "-a", ":1"},
			expected: &Config{HTTPAddr: ":1"},
		},
		{
			name:     "empty dsn selects memory store",
			args:     []string{"cmd", "-d="},
			expected: &Config{},
		},
		{
			name:        "bad int",
			args:        []string{"cmd", "-l", "many"},
			expectPanic: true,
		},
	}

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
