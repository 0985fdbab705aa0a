// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/affinity/internal/affinity"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default value.
// Policy defaults come from affinity.DefaultConfig so they exist in one place.
func defaultConfig() *Config {
	policy := affinity.DefaultConfig()

	return &Config{
		Data: DataConfig{
			Dir:    "./data",
			Source: SourceFiles,
		},
		Output: OutputConfig{
			Dir:   "./output",
			Reset: false,
			CSV:   true,
		},
		Affinity: AffinityConfig{
			Goals:            []string{},
			ActiveDays:       policy.Eligibility.ActiveDays,
			ReferenceDate:    "",
			Workers:          0, // 0 = runtime.NumCPU()
			LiftWeight:       policy.Weights.LiftWeight,
			CoOrdersWeight:   policy.Weights.CoOrdersWeight,
			RecencyLastOrder: policy.Weights.RecencyLastOrder,
			RecencyDefault:   policy.Weights.RecencyDefault,
			FrequencyBase:    policy.Weights.FrequencyBase,
			FrequencySlope:   policy.Weights.FrequencySlope,
			FrequencyCap:     policy.Weights.FrequencyCap,
			LowerPercentile:  policy.Normalization.LowerPercentile,
			UpperPercentile:  policy.Normalization.UpperPercentile,
			LowThreshold:     policy.Distribution.LowThreshold,
			HighThreshold:    policy.Distribution.HighThreshold,
		},
		Database: DatabaseConfig{
			Enabled:   false,
			Path:      "./data/affinity.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Enabled:         false,
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RefreshInterval: 1 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (ENV > file > defaults).
// An empty path searches CONFIG_PATH and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"affinity.goals",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
// Values already loaded as lists from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"data_dir":    "data.dir",
	"data_source": "data.source",

	"output_dir":   "output.dir",
	"output_reset": "output.reset",
	"output_csv":   "output.csv",

	"affinity_goals":              "affinity.goals",
	"affinity_active_days":        "affinity.active_days",
	"affinity_reference_date":     "affinity.reference_date",
	"affinity_workers":            "affinity.workers",
	"affinity_lift_weight":        "affinity.lift_weight",
	"affinity_co_orders_weight":   "affinity.co_orders_weight",
	"affinity_recency_last_order": "affinity.recency_last_order",
	"affinity_recency_default":    "affinity.recency_default",
	"affinity_frequency_base":     "affinity.frequency_base",
	"affinity_frequency_slope":    "affinity.frequency_slope",
	"affinity_frequency_cap":      "affinity.frequency_cap",
	"affinity_lower_percentile":   "affinity.lower_percentile",
	"affinity_upper_percentile":   "affinity.upper_percentile",
	"affinity_low_threshold":      "affinity.low_threshold",
	"affinity_high_threshold":     "affinity.high_threshold",

	"duckdb_enabled":    "database.enabled",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"server_enabled":      "server.enabled",
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"refresh_interval":    "server.refresh_interval",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"cors_origins":        "server.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
//   - DATA_DIR -> data.dir
//   - AFFINITY_ACTIVE_DAYS -> affinity.active_days
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
