// Package config loads converter configuration from an optional YAML file
// merged with NEM12_-prefixed environment variables, then validates it.
// Input and output paths are not configuration: they are per-run arguments
// supplied by the caller.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "nem12cli/internal/errors"
)

// ConfigFile is the optional YAML file consulted next to the working
// directory. Environment variables take precedence over its values.
const ConfigFile = "config.yaml"

// EnvPrefix namespaces the environment variables, e.g.
// NEM12_CONVERSION_INTERVAL_LENGTH.
const EnvPrefix = "NEM12"

// Config represents the complete application configuration
type Config struct {
	Conversion ConversionConfig `yaml:"conversion" envconfig:"CONVERSION"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Tracing    TracingConfig    `yaml:"tracing" envconfig:"TRACING"`
}

// ConversionConfig controls the NEM12 output of a conversion run. Defaults
// come from Default(), not struct tags: an envconfig default tag would be
// substituted whenever the variable is unset, clobbering file values.
type ConversionConfig struct {
	// IntervalLength is the reading interval in minutes and fixes the
	// per-day slot count (1440 / length).
	IntervalLength int `yaml:"interval_length" envconfig:"INTERVAL_LENGTH" validate:"oneof=5 15 30"`
	// FromParticipant and ToParticipant fill the sender and receiver
	// fields of the NEM12 100 record.
	FromParticipant string `yaml:"from_participant" envconfig:"FROM_PARTICIPANT" validate:"required,max=10"`
	ToParticipant   string `yaml:"to_participant" envconfig:"TO_PARTICIPANT" validate:"required,max=10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TracingConfig controls the optional OpenTelemetry stage tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Load builds the configuration in three layers, lowest precedence first:
// Default() values, then the optional YAML file, then environment variables.
// The result is validated before use.
func Load() (*Config, error) {
	cfg := *Default()

	if data, err := os.ReadFile(ConfigFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to parse %s", ConfigFile), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read %s", ConfigFile), err)
	}

	// Fields without a matching NEM12_ variable keep their file or default
	// value.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			IntervalLength:  30,
			FromParticipant: "AGL",
			ToParticipant:   "Converter",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/converter.log",
		},
	}
}

// Validate checks the configuration against its declared constraints. It is
// exported so callers that mutate the config after Load (flag overrides) can
// re-validate.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
