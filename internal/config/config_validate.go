// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}

	if err := c.validateOutput(); err != nil {
		return err
	}

	if err := c.validateAffinity(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateData() error {
	switch c.Data.Source {
	case SourceFiles:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required when data.source=%s", SourceFiles)
		}
	case SourceDuckDB:
		if !c.Database.Enabled {
			return fmt.Errorf("data.source=%s requires database.enabled=true", SourceDuckDB)
		}
	default:
		return fmt.Errorf("data.source must be %q or %q, got %q", SourceFiles, SourceDuckDB, c.Data.Source)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

func (c *Config) validateAffinity() error {
	for _, goal := range c.Affinity.Goals {
		if strings.TrimSpace(goal) == "" {
			return fmt.Errorf("affinity.goals must not contain empty entries")
		}
	}

	if c.Affinity.ActiveDays <= 0 {
		return fmt.Errorf("affinity.active_days must be positive, got %d", c.Affinity.ActiveDays)
	}

	if _, err := c.Affinity.ReferenceTime(); err != nil {
		return err
	}

	if err := c.Affinity.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("affinity: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.Database.Enabled {
		return nil
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required when database.enabled=true")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be non-negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RefreshInterval < 0 {
		return fmt.Errorf("server.refresh_interval must be non-negative, got %s", c.Server.RefreshInterval)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must be non-negative, got %d", c.Server.RateLimitReqs)
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
