// Package config provides configuration management for the devstack CLI.
//
// It implements the disciplined Viper pattern where Viper stays contained
// in this package and the rest of the codebase receives explicit Config structs.
// Configuration sources are resolved in this order: flags > env > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

// Config is the explicit configuration struct
// This is what the rest of the codebase sees
type Config struct {
	Engine         string `validate:"oneof=docker podman"`
	ComposeFile    string `validate:"required"`
	NonInteractive bool
	ValidateLocal  bool
	Readiness      ReadinessConfig
	Log            LogConfig
}

// ReadinessConfig bounds how long a started service is polled
type ReadinessConfig struct {
	Attempts     int `validate:"min=1,max=600"`
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// LogConfig selects the structured log output
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=text json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Init initializes viper with defaults and config file paths
func Init() error {
	// Set config file name and type
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config file search paths
	viper.AddConfigPath("$HOME/.devstack")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("engine", "docker")
	viper.SetDefault("compose-file", "docker-compose.yml")
	viper.SetDefault("readiness-attempts", 30)
	viper.SetDefault("readiness-interval", "2s")
	viper.SetDefault("probe-timeout", "2s")
	viper.SetDefault("non-interactive", false)
	viper.SetDefault("validate-local", false)
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("log-format", "text")

	// Bind environment variables with prefix
	viper.SetEnvPrefix("DEVSTACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// Load reads from all sources and returns explicit Config. Prompts are
// disabled when stdin is not a terminal, whatever the setting says.
func Load() (*Config, error) {
	cfg := &Config{
		Engine:         viper.GetString("engine"),
		ComposeFile:    viper.GetString("compose-file"),
		NonInteractive: viper.GetBool("non-interactive") || !stdinIsTerminal(),
		ValidateLocal:  viper.GetBool("validate-local"),
		Readiness: ReadinessConfig{
			Attempts:     viper.GetInt("readiness-attempts"),
			Interval:     viper.GetDuration("readiness-interval"),
			ProbeTimeout: viper.GetDuration("probe-timeout"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log-level"),
			Format: viper.GetString("log-format"),
		},
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures config is sane
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Readiness.Interval < 0 {
		return fmt.Errorf("invalid readiness-interval: %s", c.Readiness.Interval)
	}

	if c.Readiness.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe-timeout: %s", c.Readiness.ProbeTimeout)
	}

	return nil
}

// Save writes current config to file
func Save(cfg *Config) error {
	viper.Set("engine", cfg.Engine)
	viper.Set("compose-file", cfg.ComposeFile)
	viper.Set("non-interactive", cfg.NonInteractive)
	viper.Set("validate-local", cfg.ValidateLocal)
	viper.Set("readiness-attempts", cfg.Readiness.Attempts)
	viper.Set("readiness-interval", cfg.Readiness.Interval.String())
	viper.Set("probe-timeout", cfg.Readiness.ProbeTimeout.String())
	viper.Set("log-level", cfg.Log.Level)
	viper.Set("log-format", cfg.Log.Format)

	if viper.ConfigFileUsed() == "" {
		return viper.SafeWriteConfig()
	}
	return viper.WriteConfig()
}

// Display shows current config (for devstack config)
func Display() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "(not found)"
	}

	return fmt.Sprintf(`Configuration:
  engine:             %s
  compose-file:       %s
  non-interactive:    %t
  validate-local:     %t

Readiness:
  attempts:           %d
  interval:           %s
  probe-timeout:      %s

Logging:
  level:              %s
  format:             %s

Sources:
  Config file:        %s
  Environment:        DEVSTACK_*
  Flags:              (per command)
`,
		cfg.Engine,
		cfg.ComposeFile,
		cfg.NonInteractive,
		cfg.ValidateLocal,
		cfg.Readiness.Attempts,
		cfg.Readiness.Interval,
		cfg.Readiness.ProbeTimeout,
		cfg.Log.Level,
		cfg.Log.Format,
		configFile,
	), nil
}
