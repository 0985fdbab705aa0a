// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// CoAffinityMatrix is the blended category association matrix.
// Values are in [0, 1], symmetric, with a zero diagonal.
// It is immutable after construction and safe for concurrent reads.
type CoAffinityMatrix struct {
	Categories []string    `json:"categories"`
	Matrix     [][]float64 `json:"matrix"`

	index map[string]int
}

// NewCoAffinityMatrix wraps precomputed values, typically loaded from storage.
func NewCoAffinityMatrix(categories []string, values [][]float64) (*CoAffinityMatrix, error) {
	if len(values) != len(categories) {
		return nil, fmt.Errorf("%w: %d rows for %d categories", ErrNotSquare, len(values), len(categories))
	}
	for i, row := range values {
		if len(row) != len(categories) {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrNotSquare, i, len(row))
		}
	}

	return &CoAffinityMatrix{
		Categories: categories,
		Matrix:     values,
		index:      buildIndex(categories),
	}, nil
}

// UnmarshalJSON decodes {categories, matrix} and rebuilds the index.
func (m *CoAffinityMatrix) UnmarshalJSON(data []byte) error {
	var raw struct {
		Categories []string    `json:"categories"`
		Matrix     [][]float64 `json:"matrix"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	built, err := NewCoAffinityMatrix(raw.Categories, raw.Matrix)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}

// Compose blends normalized lift and normalized co-order counts:
//
//	co[i][j] = w.LiftWeight*lift[i][j] + w.CoOrdersWeight*coOrders[i][j]  (i != j)
//
// Both inputs must share the same category ordering.
func Compose(lift, coOrders *NormalizedMatrix, w Weights) (*CoAffinityMatrix, error) {
	if !sameCategories(lift.Categories, coOrders.Categories) {
		return nil, fmt.Errorf("%w: lift has %d categories, co-orders has %d",
			ErrCategoryMismatch, len(lift.Categories), len(coOrders.Categories))
	}

	n := len(lift.Categories)
	values := newSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			values[i][j] = w.LiftWeight*lift.Values[i][j] + w.CoOrdersWeight*coOrders.Values[i][j]
		}
	}

	return NewCoAffinityMatrix(lift.Categories, values)
}

// Has reports whether the category is part of the matrix.
func (m *CoAffinityMatrix) Has(categoryID string) bool {
	_, ok := m.index[categoryID]
	return ok
}

// Value returns the co-affinity between two categories, or 0 if either is
// not part of the matrix.
func (m *CoAffinityMatrix) Value(from, to string) float64 {
	i, ok := m.index[from]
	if !ok {
		return 0
	}
	j, ok := m.index[to]
	if !ok {
		return 0
	}
	return m.Matrix[i][j]
}

// RelatedCategory is a category ranked by co-affinity to another.
type RelatedCategory struct {
	CategoryID string  `json:"category_id"`
	CoAffinity float64 `json:"co_affinity"`
}

// Related returns the categories most associated with categoryID, strongest
// first. limit <= 0 returns all of them.
func (m *CoAffinityMatrix) Related(categoryID string, limit int) []RelatedCategory {
	i, ok := m.index[categoryID]
	if !ok {
		return nil
	}

	related := make([]RelatedCategory, 0, len(m.Categories)-1)
	for j, id := range m.Categories {
		if j == i {
			continue
		}
		related = append(related, RelatedCategory{CategoryID: id, CoAffinity: m.Matrix[i][j]})
	}

	sort.SliceStable(related, func(a, b int) bool {
		return related[a].CoAffinity > related[b].CoAffinity
	})

	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related
}
