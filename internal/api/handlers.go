// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/pipeline"
)

// resultCacheTTL bounds how long a goal result is kept; results are also
// keyed by snapshot version.
const resultCacheTTL = 30 * time.Minute

// Handler serves the affinity API.
//
// Handler methods are split across files:
//   - handlers_health.go: health and readiness checks
//   - handlers_matrix.go: categories, matrix and pair counts
//   - handlers_affinity.go: goal results, single-customer scores, refresh
//   - handlers_runs.go: persisted runs (DuckDB only)
type Handler struct {
	pipeline  *pipeline.Pipeline
	db        *database.DB
	results   *cache.LRU[*affinity.BatchResult]
	startTime time.Time
}

// NewHandler creates a handler. db is optional; without it the pair count
// and run endpoints answer 404.
func NewHandler(p *pipeline.Pipeline, db *database.DB) *Handler {
	return &Handler{
		pipeline:  p,
		db:        db,
		results:   cache.NewLRU[*affinity.BatchResult](64, resultCacheTTL),
		startTime: time.Now(),
	}
}

// goalResult returns the batch result for goal on snap, scoring it on a
// cache miss.
func (h *Handler) goalResult(ctx context.Context, snap *pipeline.Snapshot, goal string) (*affinity.BatchResult, error) {
	key := fmt.Sprintf("%d:%s", snap.Version, goal)
	if result, ok := h.results.Get(key); ok {
		return result, nil
	}

	result, err := h.pipeline.EvaluateSnapshot(ctx, snap, goal)
	if err != nil {
		return nil, err
	}
	h.results.Add(key, result)
	return result, nil
}
