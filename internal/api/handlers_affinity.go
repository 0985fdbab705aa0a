// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/pipeline"
)

// GoalResultsResponse is one page of scored customers for a goal, strongest
// first.
type GoalResultsResponse struct {
	RunID         uuid.UUID                         `json:"run_id"`
	Goal          string                            `json:"goal"`
	ReferenceDate time.Time                         `json:"reference_date"`
	ActiveDays    int                               `json:"active_days"`
	Stats         affinity.AffinityStats            `json:"stats"`
	SkipCounts    map[affinity.SkipReason]int       `json:"skip_counts"`
	Total         int                               `json:"total"`
	Offset        int                               `json:"offset"`
	Limit         int                               `json:"limit"`
	HasMore       bool                              `json:"has_more"`
	Results       []affinity.CustomerAffinityResult `json:"results"`
}

// CustomerAffinityResponse is either a score or the reason the customer was
// skipped.
type CustomerAffinityResponse struct {
	CustomerID string                           `json:"customer_id"`
	Goal       string                           `json:"goal"`
	Scored     bool                             `json:"scored"`
	SkipReason affinity.SkipReason              `json:"skip_reason,omitempty"`
	Result     *affinity.CustomerAffinityResult `json:"result,omitempty"`
}

// RefreshResponse describes the snapshot built by a refresh.
type RefreshResponse struct {
	Version    int64     `json:"version"`
	BuiltAt    time.Time `json:"built_at"`
	Source     string    `json:"source"`
	Categories int       `json:"categories"`
	Customers  int       `json:"customers"`
	Orders     int       `json:"orders"`
}

// GoalResults scores every customer for {goal} and returns the customers at
// or above min_score.
func (h *Handler) GoalResults(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := GoalResultsRequest{
		MinScore: getFloatParam(r, "min_score", 0),
		Limit:    getIntParam(r, "limit", 100),
		Offset:   getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondPipelineError(w, pipeline.ErrNotReady)
		return
	}

	result, err := h.goalResult(r.Context(), snap, chi.URLParam(r, "goal"))
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	// The cached result is shared; filter into a new slice before sorting.
	matching := make([]affinity.CustomerAffinityResult, 0, len(result.Results))
	for i := range result.Results {
		if result.Results[i].Affinity >= req.MinScore {
			matching = append(matching, result.Results[i])
		}
	}
	sort.SliceStable(matching, func(a, b int) bool {
		return matching[a].Affinity > matching[b].Affinity
	})

	total := len(matching)
	from := min(req.Offset, total)
	to := min(from+req.Limit, total)

	respondSuccess(w, GoalResultsResponse{
		RunID:         result.RunID,
		Goal:          result.Goal,
		ReferenceDate: result.ReferenceDate,
		ActiveDays:    result.ActiveDays,
		Stats:         result.Stats,
		SkipCounts:    result.SkipCounts,
		Total:         total,
		Offset:        req.Offset,
		Limit:         req.Limit,
		HasMore:       to < total,
		Results:       matching[from:to],
	}, start, snap.Version)
}

// CustomerAffinity scores {customerID} for {goal}.
func (h *Handler) CustomerAffinity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	goal := chi.URLParam(r, "goal")
	customerID := chi.URLParam(r, "customerID")

	snap := h.pipeline.Snapshot()
	result, reason, err := h.pipeline.ScoreCustomer(goal, customerID)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	var version int64
	if snap != nil {
		version = snap.Version
	}
	respondSuccess(w, CustomerAffinityResponse{
		CustomerID: customerID,
		Goal:       goal,
		Scored:     result != nil,
		SkipReason: reason,
		Result:     result,
	}, start, version)
}

// Refresh rebuilds the snapshot from the configured source.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	snap, err := h.pipeline.Refresh(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("refresh requested via API failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "Refresh failed", err)
		return
	}

	respondSuccess(w, RefreshResponse{
		Version:    snap.Version,
		BuiltAt:    snap.BuiltAt,
		Source:     snap.Source,
		Categories: len(snap.Dataset.Categories),
		Customers:  len(snap.Dataset.Customers),
		Orders:     len(snap.Dataset.Orders),
	}, start, snap.Version)
}
