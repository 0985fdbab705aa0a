// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"fmt"
	"time"
)

// CategoryPair is the number of orders that contain both categories.
type CategoryPair struct {
	CategoryA string `json:"category_a"`
	CategoryB string `json:"category_b"`
	Orders    int    `json:"orders"`
}

// CategoryPairCounts counts, for every pair of known categories, the orders
// containing both at least once. Pairs are returned with CategoryA < CategoryB,
// most frequent first. Items with unknown categories are ignored.
func (db *DB) CategoryPairCounts(ctx context.Context) (pairs []CategoryPair, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("SELECT", "order_items", start, err) }()

	query := `
		WITH order_categories AS (
			SELECT DISTINCT oi.order_id, oi.category_id
			FROM order_items oi
			JOIN categories c ON c.id = oi.category_id
		)
		SELECT a.category_id, b.category_id, COUNT(*) AS orders
		FROM order_categories a
		JOIN order_categories b
			ON a.order_id = b.order_id AND a.category_id < b.category_id
		GROUP BY a.category_id, b.category_id
		ORDER BY orders DESC, a.category_id, b.category_id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category pairs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	pairs = make([]CategoryPair, 0)
	for rows.Next() {
		var p CategoryPair
		if err = rows.Scan(&p.CategoryA, &p.CategoryB, &p.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan category pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category pairs: %w", err)
	}
	return pairs, nil
}

// CategoryOrderCounts returns the number of orders containing each known
// category at least once. Categories without orders are reported as 0.
func (db *DB) CategoryOrderCounts(ctx context.Context) (counts map[string]int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("SELECT", "order_items", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, COUNT(DISTINCT oi.order_id)
		FROM categories c
		LEFT JOIN order_items oi ON oi.category_id = c.id
		GROUP BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category order counts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	counts = make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err = rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category order count: %w", err)
		}
		counts[id] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category order counts: %w", err)
	}
	return counts, nil
}
