// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/pipeline"
)

// RelatedResponse lists the strongest co-affinity partners of a category.
type RelatedResponse struct {
	CategoryID string                     `json:"category_id"`
	Related    []affinity.RelatedCategory `json:"related"`
}

// PairsResponse is the SQL-side co-occurrence view of the stored dataset.
type PairsResponse struct {
	Pairs          []database.CategoryPair `json:"pairs"`
	CategoryOrders map[string]int          `json:"category_orders"`
}

// Categories lists the categories of the current snapshot in matrix order.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondPipelineError(w, pipeline.ErrNotReady)
		return
	}
	respondSuccess(w, snap.Dataset.Categories, start, snap.Version)
}

// RelatedCategories returns the categories most associated with {id}.
func (h *Handler) RelatedCategories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := RelatedRequest{Limit: getIntParam(r, "limit", 10)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondPipelineError(w, pipeline.ErrNotReady)
		return
	}

	id := chi.URLParam(r, "id")
	m := snap.Matrix()
	if !m.Has(id) {
		respondPipelineError(w, &affinity.UnknownGoalError{Goal: id, Valid: m.Categories})
		return
	}

	respondSuccess(w, RelatedResponse{CategoryID: id, Related: m.Related(id, req.Limit)}, start, snap.Version)
}

// Matrix returns the full CoAffinity matrix.
func (h *Handler) Matrix(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondPipelineError(w, pipeline.ErrNotReady)
		return
	}
	respondSuccess(w, snap.Matrix(), start, snap.Version)
}

// MatrixStats returns the normalization bounds and order counts of the matrix.
func (h *Handler) MatrixStats(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondPipelineError(w, pipeline.ErrNotReady)
		return
	}
	respondSuccess(w, snap.Build.Stats, start, snap.Version)
}

// MatrixPairs returns co-ordered category pairs computed in DuckDB.
func (h *Handler) MatrixPairs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.db == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "Database is not enabled", nil)
		return
	}

	pairs, err := h.db.CategoryPairCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to count category pairs", fmt.Errorf("pair counts: %w", err))
		return
	}
	counts, err := h.db.CategoryOrderCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to count category orders", fmt.Errorf("order counts: %w", err))
		return
	}

	var version int64
	if snap := h.pipeline.Snapshot(); snap != nil {
		version = snap.Version
	}
	respondSuccess(w, PairsResponse{Pairs: pairs, CategoryOrders: counts}, start, version)
}
