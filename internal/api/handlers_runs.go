// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/affinity/internal/database"
)

// Runs lists persisted goal runs, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.db == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "Database is not enabled", nil)
		return
	}

	req := RunsRequest{
		Goal:  r.URL.Query().Get("goal"),
		Limit: getIntParam(r, "limit", 20),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	runs, err := h.db.RecentRuns(r.Context(), req.Goal, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to list runs", err)
		return
	}
	respondSuccess(w, runs, start, 0)
}

// RunResults returns the stored results of {runID}, strongest first.
func (h *Handler) RunResults(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.db == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "Database is not enabled", nil)
		return
	}

	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation, "runID must be a UUID", nil)
		return
	}

	req := RunResultsRequest{MinScore: getFloatParam(r, "min_score", 0)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	results, err := h.db.RunResults(r.Context(), runID, req.MinScore)
	if errors.Is(err, database.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to load run results", err)
		return
	}
	respondSuccess(w, results, start, 0)
}
