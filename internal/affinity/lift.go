// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

// LiftMatrix holds the lift of every category pair:
//
//	lift(i, j) = co[i][j] * total / (count[i] * count[j])
//
// Lift > 1 means the pair co-occurs more often than independence predicts,
// < 1 less often. Pairs involving a category with no orders have lift 0.
type LiftMatrix struct {
	Categories []string    `json:"categories"`
	Values     [][]float64 `json:"values"`
}

// ComputeLift converts co-occurrence counts into lift ratios.
func ComputeLift(co *CoOccurrenceMatrix) *LiftMatrix {
	n := len(co.Categories)
	values := newSquare(n)
	total := float64(co.TotalOrders)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ci, cj := co.OrderCounts[i], co.OrderCounts[j]
			if ci == 0 || cj == 0 {
				continue
			}
			lift := float64(co.Counts[i][j]) * total / (float64(ci) * float64(cj))
			values[i][j] = lift
			values[j][i] = lift
		}
	}

	return &LiftMatrix{
		Categories: co.Categories,
		Values:     values,
	}
}
