// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package config loads application configuration with koanf.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/affinity/config.yaml)
//  3. Environment variables listed in envMappings
//
// Example config.yaml:
//
//	data:
//	  dir: ./data
//	  source: files
//	affinity:
//	  goals: [books, toys]
//	  active_days: 90
//	  workers: 4
//	server:
//	  enabled: true
//	  port: 8080
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/tomtom215/affinity/internal/affinity"
)

// Data sources.
const (
	SourceFiles  = "files"
	SourceDuckDB = "duckdb"
)

// Config holds all application configuration.
type Config struct {
	Data     DataConfig     `koanf:"data"`
	Output   OutputConfig   `koanf:"output"`
	Affinity AffinityConfig `koanf:"affinity"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DataConfig selects where categories, customers and orders come from.
type DataConfig struct {
	// Dir holds categories.json, customers.json and orders.json.
	Dir string `koanf:"dir"`

	// Source is "files" (read Dir) or "duckdb" (read the database).
	// With "files" and the database enabled, the dataset is mirrored into DuckDB.
	Source string `koanf:"source"`
}

// OutputConfig controls result files.
type OutputConfig struct {
	Dir string `koanf:"dir"`

	// Reset removes and recreates Dir before writing.
	Reset bool `koanf:"reset"`

	// CSV additionally writes one CSV per goal.
	CSV bool `koanf:"csv"`
}

// AffinityConfig holds scoring policy.
type AffinityConfig struct {
	// Goals are the goal categories scored by a full run.
	Goals []string `koanf:"goals"`

	ActiveDays int `koanf:"active_days"`

	// ReferenceDate anchors the activity window (RFC3339 or 2006-01-02).
	// Empty means the time of the run.
	ReferenceDate string `koanf:"reference_date"`

	Workers int `koanf:"workers"`

	LiftWeight       float64 `koanf:"lift_weight"`
	CoOrdersWeight   float64 `koanf:"co_orders_weight"`
	RecencyLastOrder float64 `koanf:"recency_last_order"`
	RecencyDefault   float64 `koanf:"recency_default"`
	FrequencyBase    float64 `koanf:"frequency_base"`
	FrequencySlope   float64 `koanf:"frequency_slope"`
	FrequencyCap     float64 `koanf:"frequency_cap"`
	LowerPercentile  float64 `koanf:"lower_percentile"`
	UpperPercentile  float64 `koanf:"upper_percentile"`
	LowThreshold     float64 `koanf:"low_threshold"`
	HighThreshold    float64 `koanf:"high_threshold"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RefreshInterval time.Duration `koanf:"refresh_interval"` // 0 disables periodic refresh
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReferenceTime parses ReferenceDate. The zero time is returned when it is empty.
func (a *AffinityConfig) ReferenceTime() (time.Time, error) {
	if a.ReferenceDate == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, a.ReferenceDate); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, a.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("affinity.reference_date %q: want RFC3339 or YYYY-MM-DD", a.ReferenceDate)
	}
	return t, nil
}

// PipelineConfig converts the affinity section into scoring policy.
// Workers == 0 becomes runtime.NumCPU().
func (a *AffinityConfig) PipelineConfig() *affinity.Config {
	workers := a.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	return &affinity.Config{
		Weights: affinity.Weights{
			LiftWeight:       a.LiftWeight,
			CoOrdersWeight:   a.CoOrdersWeight,
			RecencyLastOrder: a.RecencyLastOrder,
			RecencyDefault:   a.RecencyDefault,
			FrequencyBase:    a.FrequencyBase,
			FrequencySlope:   a.FrequencySlope,
			FrequencyCap:     a.FrequencyCap,
		},
		Normalization: affinity.NormalizationConfig{
			LowerPercentile: a.LowerPercentile,
			UpperPercentile: a.UpperPercentile,
		},
		Eligibility: affinity.EligibilityConfig{
			ActiveDays: a.ActiveDays,
		},
		Distribution: affinity.DistributionConfig{
			LowThreshold:  a.LowThreshold,
			HighThreshold: a.HighThreshold,
		},
		Workers: workers,
	}
}
