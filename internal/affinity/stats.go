// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import "sort"

// Distribution is a three-bucket histogram of affinity scores.
type Distribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// AffinityStats summarizes the affinity scores of one batch.
type AffinityStats struct {
	Count        int          `json:"count"`
	Mean         float64      `json:"mean"`
	Median       float64      `json:"median"`
	Min          float64      `json:"min"`
	Max          float64      `json:"max"`
	Distribution Distribution `json:"distribution"`
}

// ComputeStats summarizes scores. An empty input yields zero stats.
// Scores below LowThreshold are low, at or above HighThreshold high,
// everything else medium.
func ComputeStats(values []float64, cfg DistributionConfig) AffinityStats {
	if len(values) == 0 {
		return AffinityStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	stats := AffinityStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}

	var sum float64
	for _, v := range sorted {
		sum += v
		switch {
		case v < cfg.LowThreshold:
			stats.Distribution.Low++
		case v < cfg.HighThreshold:
			stats.Distribution.Medium++
		default:
			stats.Distribution.High++
		}
	}
	stats.Mean = sum / float64(len(sorted))

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		stats.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		stats.Median = sorted[mid]
	}

	return stats
}
