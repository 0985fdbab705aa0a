// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

// Health reports the snapshot state. It answers 200 while the first
// snapshot is still being built, with status "starting".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	health := models.HealthStatus{
		Status: "starting",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}

	snap := h.pipeline.Snapshot()
	if snap != nil {
		health.Status = "healthy"
		health.Ready = true
		health.SnapshotVersion = snap.Version
		health.BuiltAt = snap.BuiltAt
		health.Categories = len(snap.Dataset.Categories)
		health.Customers = len(snap.Dataset.Customers)
		health.Orders = len(snap.Dataset.Orders)
	}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			health.Status = "degraded"
		}
	}

	respondSuccess(w, health, start, health.SnapshotVersion)
}

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now(), 0)
}

// HealthReady answers 503 until a snapshot is available.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	snap := h.pipeline.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, CodeNotReady, "No affinity snapshot has been built yet", nil)
		return
	}
	respondSuccess(w, map[string]interface{}{"ready": true}, time.Now(), snap.Version)
}
