// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
// SnapshotVersion identifies the matrix snapshot the response was computed from.
type Metadata struct {
	Timestamp       time.Time `json:"timestamp"`
	QueryTimeMS     int64     `json:"query_time_ms,omitempty"`
	SnapshotVersion int64     `json:"snapshot_version,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - UNKNOWN_CATEGORY: Goal or category not present in the matrix
//   - NOT_FOUND: Customer or resource not found
//   - NOT_READY: No matrix snapshot has been built yet
//   - INTERNAL_ERROR: Unexpected failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status          string    `json:"status"`
	Ready           bool      `json:"ready"`
	SnapshotVersion int64     `json:"snapshot_version"`
	BuiltAt         time.Time `json:"built_at,omitempty"`
	Categories      int       `json:"categories"`
	Customers       int       `json:"customers"`
	Orders          int       `json:"orders"`
	Uptime          string    `json:"uptime"`
}
