// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import "time"

// Observer receives progress events from the orchestrator.
// Implementations must be safe for concurrent use: customer events are
// emitted from worker goroutines.
type Observer interface {
	// CustomerScored is called once per scored customer.
	CustomerScored(goal string, affinity float64)

	// CustomerSkipped is called once per skipped customer.
	CustomerSkipped(goal string, reason string)

	// BatchCompleted is called after a successful run.
	BatchCompleted(goal string, stats AffinityStats, duration time.Duration)
}

// NopObserver discards every event.
type NopObserver struct{}

// CustomerScored implements Observer.
func (NopObserver) CustomerScored(string, float64) {}

// CustomerSkipped implements Observer.
func (NopObserver) CustomerSkipped(string, string) {}

// BatchCompleted implements Observer.
func (NopObserver) BatchCompleted(string, AffinityStats, time.Duration) {}
