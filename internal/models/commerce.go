// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a product category. The ordered category list of a dataset
// defines the row/column indices of every category matrix.
type Category struct {
	// ID is the unique category identifier (e.g. "electronics" or
	// "Home & Garden"). Any non-blank string is accepted.
	ID string `json:"id" validate:"required,category_id"`

	// Name is the display name.
	Name string `json:"name" validate:"required"`

	// BaseWeight is the relative popularity used by dataset generators.
	// It plays no role in affinity scoring.
	BaseWeight float64 `json:"base_weight" validate:"gte=0"`
}

// Customer is a shopper that owns orders.
type Customer struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderItem is a single line of an order.
// Several items of one order may share a category.
type OrderItem struct {
	// CategoryID may name a category missing from the dataset; such items
	// are ignored by the affinity pipeline.
	CategoryID string          `json:"category_id" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gte=1"`
	Price      decimal.Decimal `json:"price" validate:"money"`
}

// LineTotal returns quantity × price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is an immutable purchase record.
type Order struct {
	ID         string          `json:"id" validate:"required"`
	CustomerID string          `json:"customer_id" validate:"required"`
	CreatedAt  time.Time       `json:"created_at" validate:"required"`
	Items      []OrderItem     `json:"items" validate:"dive"`
	Total      decimal.Decimal `json:"total"`
}

// ComputeTotal sums the line totals of all items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CategorySet returns the distinct category IDs present in the order.
func (o *Order) CategorySet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Items))
	for _, item := range o.Items {
		set[item.CategoryID] = struct{}{}
	}
	return set
}
