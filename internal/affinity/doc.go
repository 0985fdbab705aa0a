// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package affinity computes category co-affinity and customer propensity scores.
//
// The package has two halves. The matrix half runs once per dataset:
//
//	orders + categories
//	  -> BuildCoOccurrence   (distinct-category pair counts per order)
//	  -> ComputeLift         (observed / expected joint frequency)
//	  -> Normalize           (P5/P95 clip, rescale to [0,1])
//	  -> Compose             (0.7 * lift + 0.3 * co-orders)
//	  = CoAffinityMatrix
//
// The customer half runs per customer against the finished matrix:
//
//	customer orders
//	  -> BuildHistory        (frequency, last purchase, last-order flag)
//	  -> ComputeSeedWeights  (recency boost * frequency boost)
//	  -> Score               (1 - exp(-max weighted signal))
//
// Orchestrator drives the customer half over a whole population for one goal
// category, applying eligibility rules and summarizing the resulting scores.
//
// # Configuration
//
// Every policy constant (blend weights, recency boosts, frequency cap,
// normalization percentiles, histogram thresholds) lives in Config and is
// passed explicitly. DefaultConfig returns the production values.
//
// # Thread Safety
//
// Matrices are immutable after construction and may be shared by any number
// of goroutines. Per-customer structures are never shared. Orchestrator.Run
// fans out across customers when Config.Workers > 1.
package affinity
