// Package config loads and persists codetrail configuration from
// .codetrail/config.json under the project root.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete codetrail configuration
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Query   QueryConfig   `json:"query" mapstructure:"query"`
	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// CacheConfig contains snapshot cache configuration
type CacheConfig struct {
	SnapshotTtlSeconds int `json:"snapshotTtlSeconds" mapstructure:"snapshotTtlSeconds"`
}

// QueryConfig contains clamps applied to list/detail query parameters
type QueryConfig struct {
	DefaultLimit    int `json:"defaultLimit" mapstructure:"defaultLimit"`
	MaxLimit        int `json:"maxLimit" mapstructure:"maxLimit"`
	DefaultActivity int `json:"defaultActivity" mapstructure:"defaultActivity"`
	MaxActivity     int `json:"maxActivity" mapstructure:"maxActivity"`
	MaxTreeDepth    int `json:"maxTreeDepth" mapstructure:"maxTreeDepth"`
}

// ScanConfig contains filesystem scan configuration
type ScanConfig struct {
	// ExtraIgnores are matched in addition to .gitignore and the built-in excludes
	ExtraIgnores []string `json:"extraIgnores" mapstructure:"extraIgnores"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DataDir is the per-project directory holding config and the activity database
const DataDir = ".codetrail"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		ProjectRoot: ".",
		Cache: CacheConfig{
			SnapshotTtlSeconds: 30,
		},
		Query: QueryConfig{
			DefaultLimit:    100,
			MaxLimit:        500,
			DefaultActivity: 50,
			MaxActivity:     500,
			MaxTreeDepth:    10,
		},
		Scan: ScanConfig{
			ExtraIgnores: []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .codetrail/config.json
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("version", 1)
	v.SetDefault("projectRoot", ".")

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDir))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Unmarshal into config struct
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .codetrail/config.json
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, DataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Cache.SnapshotTtlSeconds <= 0 {
		return fmt.Errorf("cache.snapshotTtlSeconds must be positive, got %d", c.Cache.SnapshotTtlSeconds)
	}
	if c.Query.MaxLimit < 1 {
		return fmt.Errorf("query.maxLimit must be at least 1, got %d", c.Query.MaxLimit)
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.defaultLimit must be in [1,%d], got %d", c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Query.MaxActivity < 1 {
		return fmt.Errorf("query.maxActivity must be at least 1, got %d", c.Query.MaxActivity)
	}
	if c.Query.MaxTreeDepth < 1 {
		return fmt.Errorf("query.maxTreeDepth must be at least 1, got %d", c.Query.MaxTreeDepth)
	}
	return nil
}
