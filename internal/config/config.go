// Package config turns Viper settings into the typed cdndash configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/HerbHall/cdndash/internal/backend"
	"github.com/HerbHall/cdndash/internal/server"
	"github.com/spf13/viper"
)

// Config is the full cdndash configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Backend   Backend   `mapstructure:"backend"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Logging   Logging   `mapstructure:"logging"`
}

// Server configures the HTTP listener and its middleware.
type Server struct {
	Host      string    `mapstructure:"host"`
	Port      int       `mapstructure:"port"`
	DevMode   bool      `mapstructure:"dev_mode"`
	ReadOnly  bool      `mapstructure:"read_only"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

// RateLimit bounds requests per client IP.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Backend points at the configuration server API.
type Backend struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Token        string        `mapstructure:"token"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// Dashboard tunes dashboard behaviour.
type Dashboard struct {
	// InvalidateRPS caps invalidation requests sent upstream; 0 disables the cap.
	InvalidateRPS   float64 `mapstructure:"invalidate_rps"`
	InvalidateBurst int     `mapstructure:"invalidate_burst"`
}

// Logging selects the zap level and encoder.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configPath (or the default search path) and
// the environment.
func Load(configPath string) (*Config, *viper.Viper, error) {
	v, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := backend.ParseBase(c.Backend.URL); err != nil {
		errs = append(errs, fmt.Errorf("backend.url: %w", err))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, errors.New("backend.timeout must not be negative"))
	}
	if c.Dashboard.InvalidateRPS < 0 {
		errs = append(errs, errors.New("dashboard.invalidate_rps must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BackendURL returns the parsed backend base URL.
func (c *Config) BackendURL() (*url.URL, error) {
	return backend.ParseBase(c.Backend.URL)
}

// ServerOptions maps the server section onto middleware options.
func (c *Config) ServerOptions() server.Options {
	return server.Options{
		DevMode:        c.Server.DevMode,
		ReadOnly:       c.Server.ReadOnly,
		RateLimitRPS:   c.Server.RateLimit.RPS,
		RateLimitBurst: c.Server.RateLimit.Burst,
	}
}
