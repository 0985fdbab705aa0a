// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between the two closest ranks. Empty input returns 0.
// The input slice is not modified.
//
// p is not range checked. Outside [0, 100] the fractional rank falls before
// the first or after the last sample, and the value is extrapolated along the
// first or last segment of the sorted sample.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}

	idx := (p / 100) * float64(n-1)

	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	// Keep both ranks on a real segment so out-of-range p extrapolates.
	switch {
	case lower < 0:
		lower, upper = 0, 1
	case upper > n-1:
		lower, upper = n-2, n-1
	}

	if lower == upper {
		return sorted[lower]
	}

	frac := idx - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
