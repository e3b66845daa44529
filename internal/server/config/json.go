package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/flagx"
	"github.com/dmitrijs2005/playerhub/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations use timex.Duration so
// both "15m" strings and integer nanoseconds are accepted. Absent fields
// keep the value already present in Config.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	DatabaseDSN     *string        `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	SetupTokenTTL   timex.Duration `json:"setup_token_ttl"`
	SessionTokenTTL timex.Duration `json:"session_token_ttl"`
	CodeTTL         timex.Duration `json:"code_ttl"`

	MaxFailedAttempts int            `json:"max_failed_attempts"`
	LockoutDuration   timex.Duration `json:"lockout_duration"`

	RateLimitMax           int            `json:"rate_limit_max"`
	RateLimitWindow        timex.Duration `json:"rate_limit_window"`
	LimiterCleanupInterval timex.Duration `json:"limiter_cleanup_interval"`

	DirectTimeout   timex.Duration `json:"direct_timeout"`
	ConnectTimeout  timex.Duration `json:"connect_timeout"`
	FallbackTimeout timex.Duration `json:"fallback_timeout"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	StreamPrefix  string `json:"stream_prefix"`
	StreamMaxLen  int64  `json:"stream_max_len"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	MailFrom     string `json:"mail_from"`

	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	PresignTTL     timex.Duration `json:"presign_ttl"`

	LogLevel        string         `json:"log_level"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing happens. An unreadable file or invalid JSON panics.
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
	setString(&config.HTTPAddr, c.HTTPAddr)
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SetupTokenTTL, c.SetupTokenTTL)
	setDuration(&config.SessionTokenTTL, c.SessionTokenTTL)
	setDuration(&config.CodeTTL, c.CodeTTL)

	setInt(&config.MaxFailedAttempts, c.MaxFailedAttempts)
	setDuration(&config.LockoutDuration, c.LockoutDuration)

	setInt(&config.RateLimitMax, c.RateLimitMax)
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setDuration(&config.LimiterCleanupInterval, c.LimiterCleanupInterval)

	setDuration(&config.DirectTimeout, c.DirectTimeout)
	setDuration(&config.ConnectTimeout, c.ConnectTimeout)
	setDuration(&config.FallbackTimeout, c.FallbackTimeout)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.StreamPrefix, c.StreamPrefix)
	if c.StreamMaxLen != 0 {
		config.StreamMaxLen = c.StreamMaxLen
	}

	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.PresignTTL, c.PresignTTL)

	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
