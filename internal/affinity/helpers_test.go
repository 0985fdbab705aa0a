// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/affinity/internal/models"
)

const epsilon = 1e-9

var refDate = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func testCategories(ids ...string) []models.Category {
	cats := make([]models.Category, len(ids))
	for i, id := range ids {
		cats[i] = models.Category{ID: id, Name: id, BaseWeight: 1}
	}
	return cats
}

var orderSeq int

// newOrder builds an order placed daysAgo days before refDate containing one
// item per category.
func newOrder(customerID string, daysAgo int, categories ...string) models.Order {
	orderSeq++
	items := make([]models.OrderItem, len(categories))
	for i, c := range categories {
		items[i] = models.OrderItem{CategoryID: c, Quantity: 1, Price: decimal.NewFromInt(10)}
	}
	return models.Order{
		ID:         fmt.Sprintf("o-%d", orderSeq),
		CustomerID: customerID,
		CreatedAt:  refDate.AddDate(0, 0, -daysAgo),
		Items:      items,
	}
}

// repeatOrders returns n copies of an order over the given categories.
func repeatOrders(n int, categories ...string) []models.Order {
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, newOrder("bulk", 1, categories...))
	}
	return orders
}

// assertSymmetricZeroDiagonal checks M[i][j] == M[j][i] and M[i][i] == 0.
func assertSymmetricZeroDiagonal(t *testing.T, name string, m [][]float64) {
	t.Helper()
	for i := range m {
		if m[i][i] != 0 {
			t.Errorf("%s[%d][%d] = %v, want 0", name, i, i, m[i][i])
		}
		for j := range m[i] {
			if !approxEqual(m[i][j], m[j][i]) {
				t.Errorf("%s[%d][%d] = %v, %s[%d][%d] = %v, want equal", name, i, j, m[i][j], name, j, i, m[j][i])
			}
		}
	}
}

// sampleOrders is a small dataset with clear associations:
// electronics pairs with accessories, books with stationery.
func sampleOrders() []models.Order {
	return []models.Order{
		newOrder("c1", 5, "electronics", "accessories"),
		newOrder("c1", 40, "electronics", "accessories", "books"),
		newOrder("c2", 10, "books", "stationery"),
		newOrder("c2", 20, "books", "stationery", "stationery"),
		newOrder("c3", 15, "electronics", "accessories"),
		newOrder("c3", 200, "toys"),
		newOrder("c4", 3, "books"),
		newOrder("c5", 30, "toys", "books"),
		newOrder("c5", 60, "accessories", "stationery"),
		newOrder("c6", 1, "electronics", "toys"),
	}
}

func sampleCategories() []models.Category {
	return testCategories("electronics", "accessories", "books", "stationery", "toys")
}
