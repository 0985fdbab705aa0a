// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
database_schema.go - Database Schema Management

Tables:
  - categories, customers, orders, order_items: the input dataset. A
    position column keeps the load order, which defines matrix indices.
    These tables carry no key constraints; SaveDataset replaces their
    contents in one transaction and uniqueness is checked by dataset
    validation before that.
  - matrix_builds: one row per stored CoAffinity matrix with its
    normalization bounds and counts
  - coaffinity_cells: the dense matrix of a build, one row per cell
  - affinity_runs: one row per goal scoring run with its summary statistics
  - affinity_results: the per-customer results of a run

Money columns are DECIMAL(18,2). Identifiers generated by the pipeline are
stored as their canonical string form.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			base_weight DOUBLE NOT NULL DEFAULT 0
		);`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			customer_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			total DECIMAL(18,2) NOT NULL DEFAULT 0
		);`,

		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL,
			line_no INTEGER NOT NULL,
			category_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price DECIMAL(18,2) NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS matrix_builds (
			id TEXT PRIMARY KEY,
			built_at TIMESTAMP NOT NULL,
			categories TEXT NOT NULL,
			lift_p5 DOUBLE NOT NULL,
			lift_p95 DOUBLE NOT NULL,
			co_orders_p5 DOUBLE NOT NULL,
			co_orders_p95 DOUBLE NOT NULL,
			total_orders INTEGER NOT NULL,
			category_order_counts TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS coaffinity_cells (
			build_id TEXT NOT NULL,
			row_idx INTEGER NOT NULL,
			col_idx INTEGER NOT NULL,
			value DOUBLE NOT NULL,
			PRIMARY KEY (build_id, row_idx, col_idx)
		);`,

		`CREATE TABLE IF NOT EXISTS affinity_runs (
			id TEXT PRIMARY KEY,
			goal TEXT NOT NULL,
			reference_date TIMESTAMP NOT NULL,
			active_days INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ms BIGINT NOT NULL,
			scored INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			skip_counts TEXT NOT NULL,
			mean DOUBLE NOT NULL,
			median DOUBLE NOT NULL,
			min DOUBLE NOT NULL,
			max DOUBLE NOT NULL,
			low_count INTEGER NOT NULL,
			medium_count INTEGER NOT NULL,
			high_count INTEGER NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS affinity_results (
			run_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			goal TEXT NOT NULL,
			affinity DOUBLE NOT NULL,
			max_weighted_signal DOUBLE NOT NULL,
			seed_weights TEXT NOT NULL,
			weighted_signals TEXT NOT NULL,
			PRIMARY KEY (run_id, customer_id)
		);`,
	}
}

// createIndexes creates database indexes for query optimization
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns index creation SQL statements
func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_created ON orders(customer_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_category ON order_items(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_matrix_builds_built_at ON matrix_builds(built_at);`,
		`CREATE INDEX IF NOT EXISTS idx_affinity_runs_goal_started ON affinity_runs(goal, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_affinity_results_affinity ON affinity_results(run_id, affinity);`,
	}
}
