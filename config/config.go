// Package config provides configuration loading and management for reviewflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete reviewflow configuration
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	NATS      NATSConfig      `yaml:"nats"`
	HTTP      HTTPConfig      `yaml:"http"`
	Directory DirectoryConfig `yaml:"directory"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig configures the workflow engine rules
type EngineConfig struct {
	// Quorum is the minimum evaluator decisions before endorsement actions
	// are permitted (default: 2)
	Quorum int `yaml:"quorum"`
	// DeadlineDays is the accepted set of evaluation deadline offsets;
	// clear it to accept any positive value
	DeadlineDays []int `yaml:"deadline_days"`
	// RatingMin and RatingMax bound per-criterion evaluator ratings
	RatingMin int `yaml:"rating_min"`
	RatingMax int `yaml:"rating_max"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// Notifications controls whether effect notifications are published
	Notifications bool `yaml:"notifications"`
}

// HTTPConfig configures the HTTP API
type HTTPConfig struct {
	// Addr is the listen address (default: :8470)
	Addr string `yaml:"addr"`
}

// DirectoryConfig configures the evaluator directory provider
type DirectoryConfig struct {
	// Path is the YAML directory file; watched for changes
	Path string `yaml:"path"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is debug, info, warn, or error (default: info)
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Quorum:       2,
			DeadlineDays: []int{7, 14, 21, 30, 45, 60},
			RatingMin:    1,
			RatingMax:    5,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Notifications: true,
		},
		HTTP: HTTPConfig{
			Addr: ":8470",
		},
		Directory: DirectoryConfig{
			Path: "directory.yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Engine.Quorum < 1 {
		return fmt.Errorf("engine.quorum must be at least 1")
	}
	for _, d := range c.Engine.DeadlineDays {
		if d <= 0 {
			return fmt.Errorf("engine.deadline_days entries must be positive, got %d", d)
		}
	}
	if c.Engine.RatingMin < 0 || c.Engine.RatingMax < c.Engine.RatingMin {
		return fmt.Errorf("engine rating bounds are invalid: min %d, max %d", c.Engine.RatingMin, c.Engine.RatingMax)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Directory.Path == "" {
		return fmt.Errorf("directory.path is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Engine
	if other.Engine.Quorum != 0 {
		c.Engine.Quorum = other.Engine.Quorum
	}
	if len(other.Engine.DeadlineDays) > 0 {
		c.Engine.DeadlineDays = other.Engine.DeadlineDays
	}
	if other.Engine.RatingMin != 0 {
		c.Engine.RatingMin = other.Engine.RatingMin
	}
	if other.Engine.RatingMax != 0 {
		c.Engine.RatingMax = other.Engine.RatingMax
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}

	// Directory
	if other.Directory.Path != "" {
		c.Directory.Path = other.Directory.Path
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
