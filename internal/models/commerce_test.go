// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrder_ComputeTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  string
	}{
		{
			name:  "no items",
			items: nil,
			want:  "0",
		},
		{
			name: "single item with quantity",
			items: []OrderItem{
				{CategoryID: "books", Quantity: 3, Price: decimal.RequireFromString("12.50")},
			},
			want: "37.5",
		},
		{
			name: "multiple items keep cent precision",
			items: []OrderItem{
				{CategoryID: "books", Quantity: 1, Price: decimal.RequireFromString("0.10")},
				{CategoryID: "toys", Quantity: 2, Price: decimal.RequireFromString("0.20")},
			},
			want: "0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{ID: "o1", Items: tt.items}
			got := o.ComputeTotal()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ComputeTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOrder_CategorySet(t *testing.T) {
	o := Order{
		ID: "o1",
		Items: []OrderItem{
			{CategoryID: "books", Quantity: 1},
			{CategoryID: "toys", Quantity: 1},
			{CategoryID: "books", Quantity: 4},
		},
	}

	set := o.CategorySet()
	if len(set) != 2 {
		t.Fatalf("len(CategorySet()) = %d, want 2", len(set))
	}
	for _, id := range []string{"books", "toys"} {
		if _, ok := set[id]; !ok {
			t.Errorf("CategorySet() missing %q", id)
		}
	}
}
