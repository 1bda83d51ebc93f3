// Package config loads econ-calendar settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/econ-calendar/internal/logger"
	"github.com/pfrederiksen/econ-calendar/internal/scraper"
)

const (
	DefaultDBPath   = "economic_news.db"
	DefaultInterval = time.Hour
)

type Config struct {
	URL         string        `yaml:"url"`          // calendar page
	DBPath      string        `yaml:"db_path"`      // SQLite file
	Interval    time.Duration `yaml:"interval"`     // time between cycles, e.g. 1h
	LogLevel    string        `yaml:"log_level"`    // debug|info|warn|error
	MetricsAddr string        `yaml:"metrics_addr"` // e.g. :9102, empty disables /metrics
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		URL:      scraper.CalendarURL,
		DBPath:   DefaultDBPath,
		Interval: DefaultInterval,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.URL) == "" {
		errs = append(errs, errors.New("url is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
