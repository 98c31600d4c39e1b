package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values and the terminal client section.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath  string `mapstructure:"database_path" yaml:"database_path"`
	MasterKeyPath string `mapstructure:"master_key_path" yaml:"master_key_path"`
	MasterKeyEnv  string `mapstructure:"master_key_env" yaml:"master_key_env"`

	JWTSecret     string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience   string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies" yaml:"secure_cookies"`

	APIHistoryLimit  int `mapstructure:"api_history_limit" yaml:"api_history_limit"`
	PageHistoryLimit int `mapstructure:"page_history_limit" yaml:"page_history_limit"`
	MessageRateLimit int `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`

	Client ClientConfig `mapstructure:"client" yaml:"client"`
}

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	Username         string        `mapstructure:"username" yaml:"username"`
	Password         string        `mapstructure:"password" yaml:"password,omitempty"`
	RoomID           string        `mapstructure:"room_id" yaml:"room_id"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SubmitResetDelay time.Duration `mapstructure:"submit_reset_delay" yaml:"submit_reset_delay"`
	NoticeTTL        time.Duration `mapstructure:"notice_ttl" yaml:"notice_ttl"`
	BottomTolerance  int           `mapstructure:"bottom_tolerance" yaml:"bottom_tolerance"`
	LogFile          string        `mapstructure:"log_file" yaml:"log_file"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "roomchat.db",
		MasterKeyPath:     "master.key",
		MasterKeyEnv:      "MASTER_ENCRYPTION_KEY",
		JWTSecret:         "change-me",
		JWTIssuer:         "roomchat",
		JWTAudience:       "roomchat",
		TokenTTL:          24 * time.Hour,
		APIHistoryLimit:   20,
		PageHistoryLimit:  50,
		MessageRateLimit:  30,
		Client: ClientConfig{
			BaseURL:          "http://localhost:8080",
			PollInterval:     15 * time.Second,
			SubmitResetDelay: 100 * time.Millisecond,
			NoticeTTL:        5 * time.Second,
			BottomTolerance:  2,
			LogFile:          "roomchat-client.log",
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: jwt_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.APIHistoryLimit <= 0 || c.PageHistoryLimit <= 0 {
		return fmt.Errorf("config: history limits must be positive, got api=%d page=%d", c.APIHistoryLimit, c.PageHistoryLimit)
	}
	if c.MessageRateLimit < 0 {
		return fmt.Errorf("config: message_rate_limit must not be negative, got %d", c.MessageRateLimit)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MasterKeyPath != "" {
		c.MasterKeyPath = other.MasterKeyPath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	c.Client.UpdateFrom(other.Client)
}

// UpdateFrom overwrites non-zero client values from other.
func (c *ClientConfig) UpdateFrom(other ClientConfig) {
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.Username != "" {
		c.Username = other.Username
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.RoomID != "" {
		c.RoomID = other.RoomID
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
}
