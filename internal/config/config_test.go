package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Cache.SnapshotTtlSeconds != 30 {
		t.Errorf("Expected default TTL 30s, got %d", cfg.Cache.SnapshotTtlSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Query.MaxLimit != 500 {
		t.Errorf("Expected defaults when no config file exists, got maxLimit=%d", cfg.Query.MaxLimit)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Cache.SnapshotTtlSeconds = 120
	cfg.Scan.ExtraIgnores = []string{"*.tmp"}
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, DataDir, "config.json")); err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Cache.SnapshotTtlSeconds != 120 {
		t.Errorf("Expected TTL 120, got %d", loaded.Cache.SnapshotTtlSeconds)
	}
	if len(loaded.Scan.ExtraIgnores) != 1 || loaded.Scan.ExtraIgnores[0] != "*.tmp" {
		t.Errorf("Expected extra ignores to round-trip, got %v", loaded.Scan.ExtraIgnores)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero ttl", func(c *Config) { c.Cache.SnapshotTtlSeconds = 0 }, true},
		{"default over max", func(c *Config) { c.Query.DefaultLimit = 1000 }, true},
		{"zero depth", func(c *Config) { c.Query.MaxTreeDepth = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
