package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codetrail/internal/config"
	"codetrail/internal/logging"
	"codetrail/internal/query"
	"codetrail/internal/registry"
	"codetrail/internal/store"
)

var (
	engineOnce   sync.Once
	sharedEngine *query.Engine
	engineErr    error
)

// getEngine returns a shared query engine for the project selected by
// --project. The engine is lazily initialized on first use.
func getEngine(logger *logging.Logger) (*query.Engine, error) {
	engineOnce.Do(func() {
		reg, err := registry.Load(registryPath())
		if err != nil {
			engineErr = err
			return
		}

		project, err := reg.Resolve(projectFlag)
		if err != nil {
			engineErr = err
			return
		}

		cfg, err := config.LoadConfig(project.Root)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}

		db, err := store.Open(project.Root, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to open activity database: %w", err)
			return
		}

		sharedEngine = query.NewEngine(project, db, logger, cfg)
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared query engine or exits on error.
func mustGetEngine(logger *logging.Logger) *query.Engine {
	engine, err := getEngine(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return engine
}

// registryPath locates PROJECTS.toml: CODETRAIL_PROJECTS env override,
// otherwise ~/.codetrail/PROJECTS.toml.
func registryPath() string {
	if env := os.Getenv("CODETRAIL_PROJECTS"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return registry.RegistryFile
	}
	return filepath.Join(home, config.DataDir, registry.RegistryFile)
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger matching the requested output format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.InfoLevel,
	})
}
