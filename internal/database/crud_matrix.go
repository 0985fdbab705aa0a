// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/affinity/internal/affinity"
)

// MatrixRecord is a stored CoAffinity matrix with its build metadata.
type MatrixRecord struct {
	ID      uuid.UUID
	BuiltAt time.Time
	Matrix  *affinity.CoAffinityMatrix
	Stats   affinity.MatrixStats
}

// SaveMatrix stores m and its stats as a new build and returns the build id.
//
//nolint:gocritic // hugeParam: stats passed by value for immutability
func (db *DB) SaveMatrix(ctx context.Context, m *affinity.CoAffinityMatrix, stats affinity.MatrixStats) (id uuid.UUID, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("INSERT", "coaffinity_cells", start, err) }()

	categories, err := json.Marshal(m.Categories)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	counts, err := json.Marshal(stats.CategoryOrderCounts)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode category order counts: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	id = uuid.New()
	_, err = tx.ExecContext(ctx, `INSERT INTO matrix_builds (
			id, built_at, categories, lift_p5, lift_p95, co_orders_p5, co_orders_p95,
			total_orders, category_order_counts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC(), string(categories),
		stats.LiftP5, stats.LiftP95, stats.CoOrdersP5, stats.CoOrdersP95,
		stats.TotalOrders, string(counts))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert matrix build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO coaffinity_cells (build_id, row_idx, col_idx, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i, row := range m.Matrix {
		for j, v := range row {
			if _, err = stmt.ExecContext(ctx, id.String(), i, j, v); err != nil {
				return uuid.Nil, fmt.Errorf("failed to insert cell (%d,%d): %w", i, j, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// LoadMatrix returns the most recently stored matrix, or ErrNoMatrix.
func (db *DB) LoadMatrix(ctx context.Context) (rec *MatrixRecord, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNoMatrix) {
			observe("SELECT", "coaffinity_cells", start, nil)
			return
		}
		observe("SELECT", "coaffinity_cells", start, err)
	}()

	var (
		id, categoriesJSON, countsJSON string
		builtAt                        time.Time
		stats                          affinity.MatrixStats
	)
	err = db.conn.QueryRowContext(ctx, `SELECT id, built_at, categories, lift_p5, lift_p95,
			co_orders_p5, co_orders_p95, total_orders, category_order_counts
		FROM matrix_builds ORDER BY built_at DESC LIMIT 1`).Scan(
		&id, &builtAt, &categoriesJSON, &stats.LiftP5, &stats.LiftP95,
		&stats.CoOrdersP5, &stats.CoOrdersP95, &stats.TotalOrders, &countsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoMatrix
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query matrix build: %w", err)
	}

	var categories []string
	if err = json.Unmarshal([]byte(categoriesJSON), &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	if err = json.Unmarshal([]byte(countsJSON), &stats.CategoryOrderCounts); err != nil {
		return nil, fmt.Errorf("failed to decode category order counts: %w", err)
	}

	values, err := db.loadCells(ctx, id, len(categories))
	if err != nil {
		return nil, err
	}

	m, err := affinity.NewCoAffinityMatrix(categories, values)
	if err != nil {
		return nil, fmt.Errorf("stored matrix %s: %w", id, err)
	}

	buildID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("stored matrix id %q: %w", id, err)
	}

	return &MatrixRecord{ID: buildID, BuiltAt: builtAt.UTC(), Matrix: m, Stats: stats}, nil
}

func (db *DB) loadCells(ctx context.Context, buildID string, n int) ([][]float64, error) {
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT row_idx, col_idx, value FROM coaffinity_cells WHERE build_id = ?`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var i, j int
		var v float64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		if i < 0 || i >= n || j < 0 || j >= n {
			return nil, fmt.Errorf("cell (%d,%d) outside %dx%d matrix", i, j, n, n)
		}
		values[i][j] = v
	}
	return values, rows.Err()
}
