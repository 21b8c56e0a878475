package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the tool configuration file looked up in the project root.
const FileName = ".envdrift.yml"

// Config represents the envdrift configuration file
type Config struct {
	Ignores IgnoresConfig `yaml:"ignores"`
	Paths   PathsConfig   `yaml:"paths"`
}

// IgnoresConfig contains ignore rules for reported differences
type IgnoresConfig struct {
	Diffs []string `yaml:"diffs"` // Variables to ignore when reporting differences
}

// PathsConfig overrides the default project layout. All paths are
// relative to the project root.
type PathsConfig struct {
	EnvFile   string `yaml:"env_file"`   // Environment file, default .env
	ConfigDir string `yaml:"config_dir"` // Configuration directory, default config
	Cache     string `yaml:"cache"`      // Compiled config cache, default bootstrap/cache/config.php
}

// LoadConfig loads the .envdrift.yml file from the specified directory
func LoadConfig(rootPath string) (*Config, error) {
	configPath := filepath.Join(rootPath, FileName)

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// No config file, return default config
		return &Config{
			Ignores: IgnoresConfig{
				Diffs: []string{},
			},
		}, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// ShouldIgnoreDiff checks if a variable should be ignored when reporting differences
func (c *Config) ShouldIgnoreDiff(varName string) bool {
	for _, ignored := range c.Ignores.Diffs {
		if ignored == varName {
			return true
		}
	}
	return false
}
