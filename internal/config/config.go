// Package config provides configuration management for mdlive using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// Precedence, highest to lowest: command-line flags, MDLIVE_* environment
// variables, the .mdlive.yml configuration file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file searched for in the working directory.
const DefaultConfigFile = ".mdlive.yml"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Log    LogConfig    `yaml:"log"`

	// File is the watched markdown file, set from the CLI argument and
	// never read from the config file.
	File string `yaml:"-" mapstructure:"-"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Open bool   `yaml:"open"`
}

type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SetDefaults registers the built-in defaults on the global viper instance.
func SetDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.open", true)
	viper.SetDefault("watch.interval", 100*time.Millisecond)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Load builds a Config from the global viper instance and validates it.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range (1-65535)", c.Server.Port)
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}

	return nil
}

// Addr returns the host:port address the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Open: true,
		},
		Watch: WatchConfig{
			Interval: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefault writes the default configuration to path as YAML. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	header := []byte("# mdlive configuration. Values here are overridden by\n# MDLIVE_* environment variables and command-line flags.\n")
	return os.WriteFile(path, append(header, data...), 0644)
}
