package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TASKMANAGER"

type Config struct {
	BackendURL         string        `mapstructure:"backend_url"`
	APIPrefix          string        `mapstructure:"api_prefix"`
	PushPath           string        `mapstructure:"push_path"`
	TokenFile          string        `mapstructure:"token_file"`
	LogFile            string        `mapstructure:"log_file"`
	LogLevel           string        `mapstructure:"log_level"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	StaleTime          time.Duration `mapstructure:"stale_time"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskmanager", "token")
	}
	return filepath.Join(home, ".taskmanager", "token")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "http://localhost:5000")
	v.SetDefault("api_prefix", "/api")
	v.SetDefault("push_path", "/ws")
	v.SetDefault("token_file", defaultTokenFile())
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("stale_time", time.Duration(0))
	v.SetDefault("reconnect_delay", 2*time.Second)
	v.SetDefault("breaker_max_failures", 3)
	v.SetDefault("breaker_timeout", 5*time.Second)
}

// Load reads configuration from, in increasing priority: defaults, the
// optional config file, and the environment (TASKMANAGER_* variables, plus
// BACKEND_URL). envFile is loaded into the environment first when it
// exists; empty paths are skipped.
func Load(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("backend_url", envPrefix+"_BACKEND_URL", "BACKEND_URL", "VITE_BACKEND_URL"); err != nil {
		return nil, fmt.Errorf("bind backend url: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url %q: scheme must be http or https", c.BackendURL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend_url %q: host is required", c.BackendURL)
	}
	if c.RequestTimeout < 0 || c.StaleTime < 0 || c.ReconnectDelay < 0 || c.BreakerTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// APIBaseURL is the root every REST path is resolved against.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/" + strings.Trim(c.APIPrefix, "/")
}

// PushURL is the websocket endpoint on the backend's origin.
func (c *Config) PushURL() (string, error) {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return "", fmt.Errorf("backend_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/" + strings.TrimLeft(c.PushPath, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
