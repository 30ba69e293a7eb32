// Package config loads forwarder and dashboard configuration from an
// optional YAML file and flat environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/eveflow/eveflow/internal/auth"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds one side's auth scheme and credentials.
type AuthConfig struct {
	Type        string `mapstructure:"type"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	BearerToken string `mapstructure:"bearer_token"`
}

// Credentials converts the config block into an auth variant.
func (a AuthConfig) Credentials() (auth.Credentials, error) {
	t, err := auth.ParseType(a.Type)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		Type:        t,
		Username:    a.Username,
		Password:    a.Password,
		BearerToken: a.BearerToken,
	}, nil
}

// RetryConfig bounds the dispatcher's backoff policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Forwarder is the configuration for `eveflow forward`.
type Forwarder struct {
	EveFilePath   string        `mapstructure:"eve_file_path"`
	TargetURL     string        `mapstructure:"target_url"`
	BatchSize     int           `mapstructure:"batch_size"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`
	ReadInterval  time.Duration `mapstructure:"read_interval"`
	Staleness     time.Duration `mapstructure:"staleness"`
	Auth          AuthConfig    `mapstructure:"auth"`
	Retry         RetryConfig   `mapstructure:"retry"`
	Server        ServerConfig  `mapstructure:"server"`
	Logging       LoggingConfig `mapstructure:"logging"`
}

// Validate checks startup-fatal settings.
func (c *Forwarder) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target_url is required (TARGET_URL)")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if _, err := c.Auth.Credentials(); err != nil {
		return err
	}
	return nil
}

// Dashboard is the configuration for `eveflow dash`.
type Dashboard struct {
	MaxEvents       int           `mapstructure:"max_events"`
	TopN            int           `mapstructure:"top_n"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Auth            AuthConfig    `mapstructure:"auth"`
	Server          ServerConfig  `mapstructure:"server"`
	Logging         LoggingConfig `mapstructure:"logging"`
}

// Validate checks startup-fatal settings.
func (c *Dashboard) Validate() error {
	if c.MaxEvents < 1 {
		return fmt.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if _, err := c.Auth.Credentials(); err != nil {
		return err
	}
	return nil
}

// LoadForwarder reads forwarder configuration. Precedence: flat env
// vars (EVE_FILE_PATH, TARGET_URL, BATCH_SIZE, ...) over the config
// file over defaults.
func LoadForwarder(configPath string) (*Forwarder, error) {
	v := viper.New()

	v.SetDefault("eve_file_path", "/var/log/suricata/eve.json")
	v.SetDefault("target_url", "")
	v.SetDefault("batch_size", 50)
	v.SetDefault("batch_interval", "2s")
	v.SetDefault("read_interval", "100ms")
	v.SetDefault("staleness", "10s")
	v.SetDefault("auth.type", "none")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "8s")
	v.SetDefault("retry.timeout", "10s")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	setServerTimeoutDefaults(v)
	setLoggingDefaults(v)

	bindEnvs(v, map[string]string{
		"eve_file_path":      "EVE_FILE_PATH",
		"target_url":         "TARGET_URL",
		"batch_size":         "BATCH_SIZE",
		"batch_interval":     "BATCH_INTERVAL",
		"read_interval":      "READ_INTERVAL",
		"auth.type":          "HTTP_AUTH_TYPE",
		"auth.username":      "HTTP_AUTH_USERNAME",
		"auth.password":      "HTTP_AUTH_PASSWORD",
		"auth.bearer_token":  "HTTP_AUTH_BEARER_TOKEN",
		"retry.max_attempts": "RETRY_MAX_ATTEMPTS",
		"retry.base_delay":   "RETRY_BASE_DELAY",
		"server.host":        "LISTEN_HOST",
		"server.port":        "LISTEN_PORT",
		"logging.level":      "LOG_LEVEL",
		"logging.format":     "LOG_FORMAT",
	})

	if err := readConfigFile(v, configPath, "/etc/eveflow/forwarder"); err != nil {
		return nil, err
	}

	var cfg Forwarder
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadDashboard reads dashboard configuration. Precedence: flat env
// vars (DASH_AUTH_TYPE, LISTEN_PORT, MAX_EVENTS, ...) over the config
// file over defaults.
func LoadDashboard(configPath string) (*Dashboard, error) {
	v := viper.New()

	v.SetDefault("max_events", 1000)
	v.SetDefault("top_n", 10)
	v.SetDefault("refresh_interval", "1s")
	v.SetDefault("auth.type", "none")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9000)
	setServerTimeoutDefaults(v)
	setLoggingDefaults(v)

	bindEnvs(v, map[string]string{
		"max_events":        "MAX_EVENTS",
		"top_n":             "TOP_N",
		"refresh_interval":  "REFRESH_INTERVAL",
		"auth.type":         "DASH_AUTH_TYPE",
		"auth.username":     "DASH_AUTH_USERNAME",
		"auth.password":     "DASH_AUTH_PASSWORD",
		"auth.bearer_token": "DASH_AUTH_BEARER_TOKEN",
		"server.host":       "LISTEN_HOST",
		"server.port":       "LISTEN_PORT",
		"logging.level":     "LOG_LEVEL",
		"logging.format":    "LOG_FORMAT",
	})

	if err := readConfigFile(v, configPath, "/etc/eveflow/dashboard"); err != nil {
		return nil, err
	}

	var cfg Dashboard
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setServerTimeoutDefaults(v *viper.Viper) {
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
}

func setLoggingDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvs(v *viper.Viper, envs map[string]string) {
	for key, env := range envs {
		// BindEnv only errors on an empty key list.
		_ = v.BindEnv(key, env)
	}
}

func readConfigFile(v *viper.Viper, configPath, defaultDir string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults and env vars
	}
	return nil
}
