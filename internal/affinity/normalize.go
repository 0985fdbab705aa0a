// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

// Bounds is the clipping window used to normalize a matrix.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// NormalizedMatrix holds off-diagonal values rescaled into [0, 1].
type NormalizedMatrix struct {
	Categories []string    `json:"categories"`
	Values     [][]float64 `json:"values"`
	Bounds     Bounds      `json:"bounds"`
}

// ComputeBounds samples the strictly positive upper-triangle values of a
// symmetric matrix and returns the configured lower and upper percentiles.
// A matrix with no positive values yields zero bounds.
func ComputeBounds(values [][]float64, cfg NormalizationConfig) Bounds {
	sample := make([]float64, 0, len(values)*len(values)/2)
	for i := range values {
		for j := i + 1; j < len(values[i]); j++ {
			if v := values[i][j]; v > 0 {
				sample = append(sample, v)
			}
		}
	}

	return Bounds{
		Lower: Percentile(sample, cfg.LowerPercentile),
		Upper: Percentile(sample, cfg.UpperPercentile),
	}
}

// Normalize computes bounds from the matrix itself and rescales it.
func Normalize(categories []string, values [][]float64, cfg NormalizationConfig) *NormalizedMatrix {
	return NormalizeWithBounds(categories, values, ComputeBounds(values, cfg))
}

// NormalizeWithBounds rescales every off-diagonal cell with externally
// supplied bounds: the cell is clamped to [Lower, Upper] and mapped linearly
// onto [0, 1]. When Upper == Lower every cell becomes 0. The diagonal is
// always 0.
func NormalizeWithBounds(categories []string, values [][]float64, b Bounds) *NormalizedMatrix {
	n := len(values)
	out := newSquare(n)
	span := b.Upper - b.Lower

	for i := 0; i < n; i++ {
		for j := 0; j < len(values[i]) && j < n; j++ {
			if i == j || span <= 0 {
				continue
			}
			clamped := clamp(values[i][j], b.Lower, b.Upper)
			out[i][j] = (clamped - b.Lower) / span
		}
	}

	return &NormalizedMatrix{
		Categories: categories,
		Values:     out,
		Bounds:     b,
	}
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
