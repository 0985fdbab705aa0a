// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"math"
	"sort"
	"time"
)

// SeedWeight is how strongly one purchased category anchors a customer's
// future interests.
type SeedWeight struct {
	CategoryID     string  `json:"category_id"`
	RecencyBoost   float64 `json:"recency_boost"`
	FrequencyBoost float64 `json:"frequency_boost"`
	SeedWeight     float64 `json:"seed_weight"`
}

// SkipReason explains why a customer was not scored for a goal.
type SkipReason string

// Skip reasons recorded by the orchestrator.
const (
	SkipNoOrders         SkipReason = "no orders"
	SkipAlreadyPurchased SkipReason = "already purchased goal category"
	SkipInactive         SkipReason = "not active in window"
)

// RecencyBoost returns the boost for a category depending on whether it was
// part of the most recent order.
func RecencyBoost(isLastOrder bool, w Weights) float64 {
	if isLastOrder {
		return w.RecencyLastOrder
	}
	return w.RecencyDefault
}

// FrequencyBoost returns min(cap, base + slope*log2(frequency)).
// log2 of a non-positive frequency is taken as 0, so such input yields base.
func FrequencyBoost(frequency int, w Weights) float64 {
	var logFreq float64
	if frequency > 0 {
		logFreq = math.Log2(float64(frequency))
	}
	return math.Min(w.FrequencyCap, w.FrequencyBase+w.FrequencySlope*logFreq)
}

// ComputeSeedWeights derives one SeedWeight per purchased category, sorted by
// category ID.
func ComputeSeedWeights(h *PurchaseHistory, w Weights) []SeedWeight {
	if h == nil {
		return nil
	}

	seeds := make([]SeedWeight, 0, len(h.Categories))
	for categoryID, p := range h.Categories {
		recency := RecencyBoost(p.IsLastOrder, w)
		frequency := FrequencyBoost(p.Frequency, w)
		seeds = append(seeds, SeedWeight{
			CategoryID:     categoryID,
			RecencyBoost:   recency,
			FrequencyBoost: frequency,
			SeedWeight:     recency * frequency,
		})
	}

	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i].CategoryID < seeds[j].CategoryID
	})
	return seeds
}

// CheckEligibility decides whether a customer should be scored for goal.
// A customer is eligible when they never bought the goal category and their
// last order is on or after referenceDate - activeDays.
func CheckEligibility(h *PurchaseHistory, goal string, activeDays int, referenceDate time.Time) (bool, SkipReason) {
	if h == nil || h.TotalOrders == 0 {
		return false, SkipNoOrders
	}
	if h.HasPurchased(goal) {
		return false, SkipAlreadyPurchased
	}

	cutoff := referenceDate.AddDate(0, 0, -activeDays)
	if h.LastOrderDate.Before(cutoff) {
		return false, SkipInactive
	}
	return true, ""
}
