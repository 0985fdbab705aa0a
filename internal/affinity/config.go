// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"fmt"
)

// Config contains all tunable policy for the affinity pipeline.
type Config struct {
	// Weights holds the blend and seed-weight constants.
	Weights Weights `json:"weights"`

	// Normalization holds the percentile window used by the normalizer.
	Normalization NormalizationConfig `json:"normalization"`

	// Eligibility holds the activity window rule.
	Eligibility EligibilityConfig `json:"eligibility"`

	// Distribution holds the affinity histogram thresholds.
	Distribution DistributionConfig `json:"distribution"`

	// Workers is the number of goroutines used to score customers.
	// Values <= 1 score sequentially.
	// Default: 1.
	Workers int `json:"workers"`
}

// Weights defines the fixed policy constants of the pipeline.
// None of them is derived from data.
type Weights struct {
	// LiftWeight is the share of normalized lift in the CoAffinity blend.
	// Default: 0.7.
	LiftWeight float64 `json:"lift_weight"`

	// CoOrdersWeight is the share of normalized co-order counts in the blend.
	// Default: 0.3.
	CoOrdersWeight float64 `json:"co_orders_weight"`

	// RecencyLastOrder is the recency boost for categories in the most recent order.
	// Default: 0.75.
	RecencyLastOrder float64 `json:"recency_last_order"`

	// RecencyDefault is the recency boost for every other purchased category.
	// Default: 0.50.
	RecencyDefault float64 `json:"recency_default"`

	// FrequencyBase is the frequency boost for a single purchase.
	// Default: 1.0.
	FrequencyBase float64 `json:"frequency_base"`

	// FrequencySlope scales log2(frequency).
	// Default: 0.5.
	FrequencySlope float64 `json:"frequency_slope"`

	// FrequencyCap is the maximum frequency boost.
	// Default: 1.6.
	FrequencyCap float64 `json:"frequency_cap"`
}

// NormalizationConfig defines the clipping window of the normalizer.
type NormalizationConfig struct {
	// LowerPercentile maps to 0 after normalization.
	// Default: 5.
	LowerPercentile float64 `json:"lower_percentile"`

	// UpperPercentile maps to 1 after normalization.
	// Default: 95.
	UpperPercentile float64 `json:"upper_percentile"`
}

// EligibilityConfig defines which customers are scored for a goal.
type EligibilityConfig struct {
	// ActiveDays is the activity window. A customer whose most recent order
	// is older than ReferenceDate - ActiveDays is skipped.
	// Default: 90.
	ActiveDays int `json:"active_days"`
}

// DistributionConfig defines the affinity histogram buckets.
type DistributionConfig struct {
	// LowThreshold separates low from medium scores.
	// Default: 0.33.
	LowThreshold float64 `json:"low_threshold"`

	// HighThreshold separates medium from high scores.
	// Default: 0.66.
	HighThreshold float64 `json:"high_threshold"`
}

// DefaultWeights returns the production weighting policy.
func DefaultWeights() Weights {
	return Weights{
		LiftWeight:       0.7,
		CoOrdersWeight:   0.3,
		RecencyLastOrder: 0.75,
		RecencyDefault:   0.50,
		FrequencyBase:    1.0,
		FrequencySlope:   0.5,
		FrequencyCap:     1.6,
	}
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultWeights(),
		Normalization: NormalizationConfig{
			LowerPercentile: 5,
			UpperPercentile: 95,
		},
		Eligibility: EligibilityConfig{
			ActiveDays: 90,
		},
		Distribution: DistributionConfig{
			LowThreshold:  0.33,
			HighThreshold: 0.66,
		},
		Workers: 1,
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	w := c.Weights
	if w.LiftWeight < 0 {
		return fmt.Errorf("weights.lift_weight must be non-negative, got %f", w.LiftWeight)
	}
	if w.CoOrdersWeight < 0 {
		return fmt.Errorf("weights.co_orders_weight must be non-negative, got %f", w.CoOrdersWeight)
	}
	if w.LiftWeight+w.CoOrdersWeight == 0 {
		return fmt.Errorf("weights.lift_weight and weights.co_orders_weight cannot both be zero")
	}
	if w.RecencyLastOrder < 0 || w.RecencyDefault < 0 {
		return fmt.Errorf("recency boosts must be non-negative, got %f/%f", w.RecencyLastOrder, w.RecencyDefault)
	}
	if w.FrequencyBase <= 0 {
		return fmt.Errorf("weights.frequency_base must be positive, got %f", w.FrequencyBase)
	}
	if w.FrequencySlope < 0 {
		return fmt.Errorf("weights.frequency_slope must be non-negative, got %f", w.FrequencySlope)
	}
	if w.FrequencyCap < w.FrequencyBase {
		return fmt.Errorf("weights.frequency_cap must be >= frequency_base, got %f < %f", w.FrequencyCap, w.FrequencyBase)
	}

	n := c.Normalization
	if n.LowerPercentile < 0 || n.UpperPercentile > 100 {
		return fmt.Errorf("normalization percentiles must be in [0, 100], got %f/%f", n.LowerPercentile, n.UpperPercentile)
	}
	if n.LowerPercentile >= n.UpperPercentile {
		return fmt.Errorf("normalization.lower_percentile must be < upper_percentile, got %f >= %f", n.LowerPercentile, n.UpperPercentile)
	}

	if c.Eligibility.ActiveDays < 0 {
		return fmt.Errorf("eligibility.active_days must be non-negative, got %d", c.Eligibility.ActiveDays)
	}

	d := c.Distribution
	if d.LowThreshold <= 0 || d.HighThreshold >= 1 || d.LowThreshold >= d.HighThreshold {
		return fmt.Errorf("distribution thresholds must satisfy 0 < low < high < 1, got %f/%f", d.LowThreshold, d.HighThreshold)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	clone := *c
	return &clone
}
