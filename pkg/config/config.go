// Package config provides configuration loading and management for cylinderstats.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Cylinder geometry applied to every marker
	Cylinder struct {
		// Diameter of the cylinder in mm
		Diameter float64 `yaml:"diameter"`

		// Height of the cylinder in mm, split evenly above and below the marker
		Height float64 `yaml:"height"`
	} `yaml:"cylinder"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for rasterizing markers
		NumCores int `yaml:"numCores"`

		// Modes lists the operations to run in order: generate, export or both
		Modes []string `yaml:"modes"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Directory receives the Statistic_<segment>.csv files
		Directory string `yaml:"directory"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Cylinder.Diameter = 20.0
	cfg.Cylinder.Height = 30.0

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Modes = []string{"both"}

	cfg.Output.Directory = os.TempDir()
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks the values that cannot be corrected later on.
func (c *Config) Validate() error {
	if c.Cylinder.Diameter <= 0 {
		return fmt.Errorf("cylinder diameter must be positive, got %g", c.Cylinder.Diameter)
	}
	if c.Cylinder.Height <= 0 {
		return fmt.Errorf("cylinder height must be positive, got %g", c.Cylinder.Height)
	}
	if len(c.Processing.Modes) == 0 {
		return fmt.Errorf("no processing mode configured")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if cfg.Processing.NumCores < 1 {
		cfg.Processing.NumCores = 1
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
