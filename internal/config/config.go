package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables, e.g. BEDROCKNET_PORT or BEDROCKNET_NATS_URL.
const EnvPrefix = "BEDROCKNET"

// Name is the base name of the config file, bedrocknet.yaml.
const Name = "bedrocknet"

// Config is the process configuration of the bedrocknet CLI.
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Path           string        `mapstructure:"path"`
	Subscribe      []string      `mapstructure:"subscribe"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	MaxInFlight    int64         `mapstructure:"max_in_flight"`
	RateLimit      RateLimit     `mapstructure:"rate_limit"`
	NATS           NATS          `mapstructure:"nats"`
	Log            Log           `mapstructure:"log"`
}

// RateLimit throttles inbound frames.
type RateLimit struct {
	Enabled           bool    `mapstructure:"enabled"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// NATS configures the relay. An empty URL disables it.
type NATS struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type Log struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

var defaults = map[string]any{
	"host":                           "localhost",
	"port":                           8000,
	"path":                           "/",
	"subscribe":                      []string{},
	"command_timeout":                30 * time.Second,
	"max_in_flight":                  100,
	"rate_limit.enabled":             true,
	"rate_limit.messages_per_second": 100.0,
	"rate_limit.burst":               200,
	"nats.url":                       "",
	"nats.prefix":                    "bedrock",
	"log.level":                      "info",
	"log.json":                       false,
}

// New returns a viper instance with the defaults and environment binding in place.
// Flags are bound to it by the caller before Load.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and unmarshals the result.
//
// With an explicit file, a missing file is an error. Otherwise bedrocknet.yaml is looked up in
// the working directory and $HOME/.bedrocknet, and defaults apply when none is found.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", "."+Name))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("negative command_timeout %s", c.CommandTimeout))
	}
	if c.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("negative max_in_flight %d", c.MaxInFlight))
	}
	if c.RateLimit.Enabled && (c.RateLimit.MessagesPerSecond <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, fmt.Errorf("invalid rate_limit %v/s with burst %d", c.RateLimit.MessagesPerSecond, c.RateLimit.Burst))
	}
	if c.NATS.URL != "" && c.NATS.Prefix == "" {
		errs = append(errs, errors.New("nats.prefix is required with nats.url"))
	}
	return errors.Join(errs...)
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
