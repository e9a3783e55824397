// Package config loads and validates the simulator configuration.
//
// The configuration is optional: when no file is given every component
// falls back to the defaults returned by Default. The file covers the
// ambient concerns only (logging, tracing, shell history); the key
// size and input script come from the command line.
package config

import (
	"fmt"
	"os"

	"ChordSim/internal/logger"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	REPL      REPLConfig      `yaml:"repl"`
}

// LoggerConfig controls the zap backend.
//
// Log records go to stderr (or to a rotated file when File.Path is
// set) so that they never interleave with the command output on
// stdout.
type LoggerConfig struct {
	Active   bool       `yaml:"active"`
	Level    string     `yaml:"level"`    // debug | info | warn | error
	Encoding string     `yaml:"encoding"` // console | json
	File     FileConfig `yaml:"file"`
}

// FileConfig describes the optional rotated log file sink.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TelemetryConfig controls tracing of ring lookups.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig enables span export to stderr. Off by default so that
// traced output never mixes with protocol output unless asked for.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// REPLConfig controls the interactive shell.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
}

// Default returns the configuration used when no file is supplied:
// logging off, tracing off, no shell history persistence.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Active:   false,
			Level:    "info",
			Encoding: "console",
			File: FileConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 7,
			},
		},
	}
}

// LoadConfig reads the YAML file at path. An empty path yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ValidateConfig checks the enumerated fields.
func (c Config) ValidateConfig() error {
	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logger level %q", c.Logger.Level)
	}
	switch c.Logger.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logger encoding %q", c.Logger.Encoding)
	}
	return nil
}

// LogConfig records the effective configuration at debug level.
func (c Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("configuration loaded",
		logger.F("logger_active", c.Logger.Active),
		logger.F("logger_level", c.Logger.Level),
		logger.F("logger_encoding", c.Logger.Encoding),
		logger.F("logger_file", c.Logger.File.Path),
		logger.F("tracing_enabled", c.Telemetry.Tracing.Enabled),
		logger.F("history_file", c.REPL.HistoryFile))
}
