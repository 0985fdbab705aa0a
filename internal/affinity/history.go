// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"sort"
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

// CategoryPurchase summarizes how a customer bought one category.
type CategoryPurchase struct {
	// Frequency is the number of distinct orders containing the category.
	Frequency int `json:"frequency"`

	// LastPurchaseDate is the most recent order date containing the category.
	LastPurchaseDate time.Time `json:"last_purchase_date"`

	// IsLastOrder is true when the category appears in the customer's single
	// most recent order.
	IsLastOrder bool `json:"is_last_order"`
}

// PurchaseHistory is the per-customer summary used to derive seed weights.
// It is built once per customer and never mutated.
type PurchaseHistory struct {
	CustomerID    string                      `json:"customer_id"`
	Categories    map[string]CategoryPurchase `json:"categories"`
	LastOrderDate time.Time                   `json:"last_order_date"`
	TotalOrders   int                         `json:"total_orders"`
}

// HasPurchased reports whether the customer ever bought the category.
func (h *PurchaseHistory) HasPurchased(categoryID string) bool {
	_, ok := h.Categories[categoryID]
	return ok
}

// BuildHistory summarizes the orders of one customer. orders may contain
// other customers' orders; they are filtered out. ok is false when the
// customer has no orders at all.
func BuildHistory(customerID string, orders []models.Order) (*PurchaseHistory, bool) {
	own := make([]*models.Order, 0)
	for i := range orders {
		if orders[i].CustomerID == customerID {
			own = append(own, &orders[i])
		}
	}
	if len(own) == 0 {
		return nil, false
	}

	sort.SliceStable(own, func(a, b int) bool {
		return own[a].CreatedAt.After(own[b].CreatedAt)
	})

	latest := own[0]
	lastOrderSet := latest.CategorySet()

	history := &PurchaseHistory{
		CustomerID:    customerID,
		Categories:    make(map[string]CategoryPurchase),
		LastOrderDate: latest.CreatedAt,
		TotalOrders:   len(own),
	}

	for _, order := range own {
		for categoryID := range order.CategorySet() {
			p := history.Categories[categoryID]
			p.Frequency++
			if order.CreatedAt.After(p.LastPurchaseDate) {
				p.LastPurchaseDate = order.CreatedAt
			}
			_, p.IsLastOrder = lastOrderSet[categoryID]
			history.Categories[categoryID] = p
		}
	}

	return history, true
}

// GroupOrdersByCustomer indexes orders by owning customer, preserving the
// input order within each group.
//
//nolint:gocritic // rangeValCopy: Order passed by value in range, acceptable for clarity
func GroupOrdersByCustomer(orders []models.Order) map[string][]models.Order {
	grouped := make(map[string][]models.Order)
	for _, order := range orders {
		grouped[order.CustomerID] = append(grouped[order.CustomerID], order)
	}
	return grouped
}
