// Package config loads the symfile command configuration from an optional
// YAML file and SYMFILE_* environment variables.
package config

import (
	"fmt"
	"slices"

	"github.com/ilyakaznacheev/cleanenv"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// Log configures logging.
type Log struct {
	Level string `yaml:"level" env:"SYMFILE_LOG_LEVEL" env-default:"warn" env-description:"log level: trace, debug, info, warn, error, off"`
	JSON  bool   `yaml:"json" env:"SYMFILE_LOG_JSON" env-description:"write logs as JSON instead of console text"`
}

// Config is the command configuration.
type Config struct {
	Log Log `yaml:"log"`
	// Arch selects the architecture slice of universal binaries.
	Arch string `yaml:"arch" env:"SYMFILE_ARCH" env-description:"architecture slice of universal binaries"`
	// SearchPaths are searched when add-dsym is called without a path.
	SearchPaths []string `yaml:"search_paths" env:"SYMFILE_SEARCH_PATHS" env-separator:":" env-description:"colon separated symbol search paths"`
	// Journal is the SQLite file recording attachments. Empty disables it.
	Journal string `yaml:"journal" env:"SYMFILE_JOURNAL" env-description:"attachment journal database"`
	// Format is the output format.
	Format string `yaml:"format" env:"SYMFILE_FORMAT" env-default:"text" env-description:"output format: text, json, yaml"`
}

// Load reads the configuration. With an empty path only the environment is
// read. Environment variables override values from the file.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		err = cleanenv.ReadConfig(path, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	return nil
}

// Usage returns the description of the supported environment variables.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
