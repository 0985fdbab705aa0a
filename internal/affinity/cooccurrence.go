// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"sort"

	"github.com/tomtom215/affinity/internal/models"
)

// CoOccurrenceMatrix counts, for every pair of categories, the number of
// orders that contain both categories at least once.
//
//	counts[i][j] == counts[j][i], counts[i][i] == 0
type CoOccurrenceMatrix struct {
	// Categories defines the index space of Counts and OrderCounts.
	Categories []string `json:"categories"`

	// Counts is the symmetric pair count matrix.
	Counts [][]int `json:"counts"`

	// TotalOrders is the number of orders scanned.
	TotalOrders int `json:"total_orders"`

	// OrderCounts is the number of orders containing each category.
	OrderCounts []int `json:"order_counts"`
}

// BuildCoOccurrence scans orders and aggregates category co-occurrence.
// Only distinct categories per order matter: an order holding three items of
// the same category counts once. Category IDs not in categories are ignored.
//
//nolint:gocritic // rangeValCopy: Order passed by value in range, acceptable for clarity
func BuildCoOccurrence(orders []models.Order, categories []models.Category) *CoOccurrenceMatrix {
	ids := categoryIDs(categories)
	index := buildIndex(ids)
	n := len(ids)

	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}
	orderCounts := make([]int, n)

	for _, order := range orders {
		present := distinctIndices(order.Items, index)

		for _, i := range present {
			orderCounts[i]++
		}

		for a := 0; a < len(present); a++ {
			for b := a + 1; b < len(present); b++ {
				i, j := present[a], present[b]
				counts[i][j]++
				counts[j][i]++
			}
		}
	}

	return &CoOccurrenceMatrix{
		Categories:  ids,
		Counts:      counts,
		TotalOrders: len(orders),
		OrderCounts: orderCounts,
	}
}

// OrderCountsByID returns the per-category order counts keyed by category ID.
func (m *CoOccurrenceMatrix) OrderCountsByID() map[string]int {
	out := make(map[string]int, len(m.Categories))
	for i, id := range m.Categories {
		out[id] = m.OrderCounts[i]
	}
	return out
}

// Float returns the counts as a float matrix for normalization.
func (m *CoOccurrenceMatrix) Float() [][]float64 {
	out := newSquare(len(m.Categories))
	for i, row := range m.Counts {
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

// distinctIndices maps the items of one order to the sorted set of known
// category indices.
func distinctIndices(items []models.OrderItem, index map[string]int) []int {
	seen := make(map[int]struct{}, len(items))
	present := make([]int, 0, len(items))
	for _, item := range items {
		i, ok := index[item.CategoryID]
		if !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		present = append(present, i)
	}
	sort.Ints(present)
	return present
}

// categoryIDs extracts the ordered identifiers of a category list.
//
//nolint:gocritic // rangeValCopy: Category is small
func categoryIDs(categories []models.Category) []string {
	ids := make([]string, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}

// buildIndex creates a mapping from category ID to matrix index.
func buildIndex(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}

// newSquare allocates an n×n zero matrix.
func newSquare(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

// sameCategories reports whether two category orderings are identical.
func sameCategories(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
