// Package config loads the amireaper configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/amireaper/resolver"
)

// Config represents the main configuration
type Config struct {
	Version string `yaml:"version"`
	Region  string `yaml:"region"`

	// RetryMaxAttempts bounds the AWS SDK retry policy. Zero keeps the
	// SDK default.
	RetryMaxAttempts int `yaml:"retry_max_attempts,omitempty"`

	// UnattachedAction decides whether images referenced only by
	// unattached launch configurations and templates are preserved or
	// become deletion candidates.
	UnattachedAction resolver.UnattachedAction `yaml:"unattached_action,omitempty"`

	// MinAgeDays keeps images younger than this out of the candidate
	// list. Zero disables the age filter.
	MinAgeDays int `yaml:"min_age_days,omitempty"`

	// StatePath is where the run history database lives.
	StatePath string `yaml:"state_path,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version:          "1",
		Region:           "us-east-1",
		RetryMaxAttempts: 10,
		UnattachedAction: resolver.UnattachedPreserve,
		StatePath:        defaultStatePath(),
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if !c.UnattachedAction.Valid() {
		return fmt.Errorf("unattached_action must be %q or %q", resolver.UnattachedPreserve, resolver.UnattachedCollect)
	}
	if c.MinAgeDays < 0 {
		return fmt.Errorf("min_age_days must not be negative")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry_max_attempts must not be negative")
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "amireaper.db"
	}
	return home + "/.amireaper/runs.db"
}
