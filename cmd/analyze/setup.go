package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ahrav/go-tender/infrastructure/logging"
	"github.com/ahrav/go-tender/internal/application"
)

// loadConfig reads the configuration file, or the defaults, with the
// TENDER_* environment overrides applied.
func loadConfig() (*application.Config, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return loader.LoadDefault()
	}
	return loader.LoadFromFile(configPath)
}

// newLogger builds the logger from the config, with flag overrides.
func newLogger(cfg *application.Config) (*zap.Logger, error) {
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logger, err := logging.New(level, format)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}
