// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import "math"

// CategorySignal is the contribution of one seed category toward a goal.
type CategorySignal struct {
	CategoryID     string  `json:"category_id"`
	WeightedSignal float64 `json:"weighted_signal"`
}

// CustomerAffinityResult is the scored propensity of one customer toward a
// goal category.
type CustomerAffinityResult struct {
	CustomerID        string           `json:"customer_id"`
	GoalCategory      string           `json:"goal_category"`
	SeedWeights       []SeedWeight     `json:"seed_weights"`
	WeightedSignals   []CategorySignal `json:"weighted_signals"`
	MaxWeightedSignal float64          `json:"max_weighted_signal"`
	Affinity          float64          `json:"affinity"`
}

// Score combines a customer's seed weights with the CoAffinity matrix.
// Each seed contributes coaffinity[seed][goal] * seedWeight; the strongest
// single contribution is the raw signal, passed through SaturatingAffinity.
func Score(customerID, goal string, seeds []SeedWeight, matrix *CoAffinityMatrix) CustomerAffinityResult {
	signals := make([]CategorySignal, 0, len(seeds))
	var raw float64

	for _, seed := range seeds {
		weighted := matrix.Value(seed.CategoryID, goal) * seed.SeedWeight
		signals = append(signals, CategorySignal{
			CategoryID:     seed.CategoryID,
			WeightedSignal: weighted,
		})
		if weighted > raw {
			raw = weighted
		}
	}

	return CustomerAffinityResult{
		CustomerID:        customerID,
		GoalCategory:      goal,
		SeedWeights:       seeds,
		WeightedSignals:   signals,
		MaxWeightedSignal: raw,
		Affinity:          SaturatingAffinity(raw),
	}
}

// SaturatingAffinity maps a raw signal in [0, inf) onto [0, 1) as 1 - e^-raw.
func SaturatingAffinity(raw float64) float64 {
	return 1 - math.Exp(-raw)
}
