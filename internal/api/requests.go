// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

// RelatedRequest holds the query parameters of /categories/{id}/related.
type RelatedRequest struct {
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// GoalResultsRequest holds the query parameters of /affinity/{goal}.
//
// Fields:
//   - MinScore: only customers with affinity >= MinScore (0-1)
//   - Limit: results per page (1-1000)
//   - Offset: results to skip (0-1000000)
type GoalResultsRequest struct {
	MinScore float64 `json:"min_score" validate:"gte=0,lte=1"`
	Limit    int     `json:"limit" validate:"min=1,max=1000"`
	Offset   int     `json:"offset" validate:"min=0,max=1000000"`
}

// RunsRequest holds the query parameters of /runs.
type RunsRequest struct {
	Goal  string `json:"goal" validate:"omitempty,category_id"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
}

// RunResultsRequest holds the query parameters of /runs/{runID}/results.
type RunResultsRequest struct {
	MinScore float64 `json:"min_score" validate:"gte=0,lte=1"`
}
