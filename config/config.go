// Package config provides configuration loading and management for the
// moulinette service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Departments DepartmentsConfig `yaml:"departments"`
	Publicodes  PublicodesConfig  `yaml:"publicodes"`
	Serve       ServeConfig       `yaml:"serve"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DataConfig locates the geospatial data.
type DataConfig struct {
	// Dir holds the GeoJSON zone maps and the department boundaries.
	Dir string `yaml:"dir"`
	// DepartmentsFile is the department boundary collection, relative to
	// Dir when not absolute.
	DepartmentsFile string `yaml:"departments_file"`
}

// DepartmentsConfig locates the per-department evaluation configs.
type DepartmentsConfig struct {
	// Dir is the root of the department config tree.
	Dir string `yaml:"dir"`
	// Glob selects config files under Dir (doublestar syntax).
	Glob string `yaml:"glob"`
	// Watch reloads the config set when files change.
	Watch bool `yaml:"watch"`
}

// PublicodesConfig configures the optional plantation quality service.
type PublicodesConfig struct {
	// Endpoint is the quality check URL; empty disables the side channel.
	Endpoint string `yaml:"endpoint"`
	// Timeout bounds one quality call.
	Timeout time.Duration `yaml:"timeout"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:             "data",
			DepartmentsFile: "departments.geojson",
		},
		Departments: DepartmentsConfig{
			Dir:  "configs",
			Glob: "**/*.yaml",
		},
		Publicodes: PublicodesConfig{
			Endpoint: "",
			Timeout:  5 * time.Second,
		},
		Serve: ServeConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Departments.Dir == "" {
		return fmt.Errorf("departments.dir is required")
	}
	if c.Departments.Glob == "" {
		return fmt.Errorf("departments.glob is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// DepartmentsPath resolves the departments boundary file.
func (c *Config) DepartmentsPath() string {
	if filepath.IsAbs(c.Data.DepartmentsFile) {
		return c.Data.DepartmentsFile
	}
	return filepath.Join(c.Data.Dir, c.Data.DepartmentsFile)
}

// LoadFromFile loads configuration from a YAML file.
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

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
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

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Data.Dir != "" {
		c.Data.Dir = other.Data.Dir
	}
	if other.Data.DepartmentsFile != "" {
		c.Data.DepartmentsFile = other.Data.DepartmentsFile
	}

	if other.Departments.Dir != "" {
		c.Departments.Dir = other.Departments.Dir
	}
	if other.Departments.Glob != "" {
		c.Departments.Glob = other.Departments.Glob
	}
	if other.Departments.Watch {
		c.Departments.Watch = true
	}

	if other.Publicodes.Endpoint != "" {
		c.Publicodes.Endpoint = other.Publicodes.Endpoint
	}
	if other.Publicodes.Timeout != 0 {
		c.Publicodes.Timeout = other.Publicodes.Timeout
	}

	if other.Serve.Addr != "" {
		c.Serve.Addr = other.Serve.Addr
	}
	if other.Serve.ShutdownTimeout != 0 {
		c.Serve.ShutdownTimeout = other.Serve.ShutdownTimeout
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}
