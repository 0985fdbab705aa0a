// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"fmt"

	"github.com/tomtom215/affinity/internal/models"
)

// MatrixStats records the normalization bounds and counts behind a
// CoAffinity matrix.
type MatrixStats struct {
	LiftP5              float64        `json:"liftP5"`
	LiftP95             float64        `json:"liftP95"`
	CoOrdersP5          float64        `json:"coOrdersP5"`
	CoOrdersP95         float64        `json:"coOrdersP95"`
	TotalOrders         int            `json:"totalOrders"`
	CategoryOrderCounts map[string]int `json:"categoryOrderCounts"`
}

// MatrixBuild holds every stage of a matrix build.
type MatrixBuild struct {
	CoOccurrence       *CoOccurrenceMatrix
	Lift               *LiftMatrix
	NormalizedLift     *NormalizedMatrix
	NormalizedCoOrders *NormalizedMatrix
	CoAffinity         *CoAffinityMatrix
	Stats              MatrixStats
}

// BuildMatrix runs aggregation, lift, normalization and composition once.
func BuildMatrix(orders []models.Order, categories []models.Category, cfg *Config) (*MatrixBuild, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	co := BuildCoOccurrence(orders, categories)
	lift := ComputeLift(co)

	normLift := Normalize(lift.Categories, lift.Values, cfg.Normalization)
	normCo := Normalize(co.Categories, co.Float(), cfg.Normalization)

	coaffinity, err := Compose(normLift, normCo, cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("compose coaffinity: %w", err)
	}

	return &MatrixBuild{
		CoOccurrence:       co,
		Lift:               lift,
		NormalizedLift:     normLift,
		NormalizedCoOrders: normCo,
		CoAffinity:         coaffinity,
		Stats: MatrixStats{
			LiftP5:              normLift.Bounds.Lower,
			LiftP95:             normLift.Bounds.Upper,
			CoOrdersP5:          normCo.Bounds.Lower,
			CoOrdersP95:         normCo.Bounds.Upper,
			TotalOrders:         co.TotalOrders,
			CategoryOrderCounts: co.OrderCountsByID(),
		},
	}, nil
}
