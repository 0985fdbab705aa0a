// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/logging"
)

// RunSummary is a stored goal run without its per-customer results.
type RunSummary struct {
	ID            uuid.UUID                   `json:"id"`
	Goal          string                      `json:"goal"`
	ReferenceDate time.Time                   `json:"reference_date"`
	ActiveDays    int                         `json:"active_days"`
	StartedAt     time.Time                   `json:"started_at"`
	Duration      time.Duration               `json:"duration"`
	Scored        int                         `json:"scored"`
	Skipped       int                         `json:"skipped"`
	SkipCounts    map[affinity.SkipReason]int `json:"skip_counts"`
	Stats         affinity.AffinityStats      `json:"stats"`
}

// SaveBatch stores a goal run and all of its customer results.
func (db *DB) SaveBatch(ctx context.Context, r *affinity.BatchResult) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("INSERT", "affinity_results", start, err) }()

	skipCounts, err := json.Marshal(r.SkipCounts)
	if err != nil {
		return fmt.Errorf("failed to encode skip counts: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	_, err = tx.ExecContext(ctx, `INSERT INTO affinity_runs (
			id, goal, reference_date, active_days, started_at, duration_ms,
			scored, skipped, skip_counts, mean, median, min, max,
			low_count, medium_count, high_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID.String(), r.Goal, r.ReferenceDate.UTC(), r.ActiveDays, r.StartedAt.UTC(),
		r.Duration.Milliseconds(), len(r.Results), len(r.Skipped), string(skipCounts),
		r.Stats.Mean, r.Stats.Median, r.Stats.Min, r.Stats.Max,
		r.Stats.Distribution.Low, r.Stats.Distribution.Medium, r.Stats.Distribution.High)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO affinity_results (
			run_id, customer_id, goal, affinity, max_weighted_signal, seed_weights, weighted_signals
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range r.Results {
		res := &r.Results[i]
		var seeds, signals []byte
		if seeds, err = json.Marshal(res.SeedWeights); err != nil {
			return fmt.Errorf("failed to encode seed weights for %s: %w", res.CustomerID, err)
		}
		if signals, err = json.Marshal(res.WeightedSignals); err != nil {
			return fmt.Errorf("failed to encode weighted signals for %s: %w", res.CustomerID, err)
		}
		_, err = stmt.ExecContext(ctx, r.RunID.String(), res.CustomerID, res.GoalCategory,
			res.Affinity, res.MaxWeightedSignal, string(seeds), string(signals))
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", res.CustomerID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Debug().
		Str("run_id", r.RunID.String()).
		Str("goal", r.Goal).
		Int("results", len(r.Results)).
		Msg("Affinity run stored")
	return nil
}

// RecentRuns returns up to limit runs, newest first. An empty goal
// matches every goal.
func (db *DB) RecentRuns(ctx context.Context, goal string, limit int) (runs []RunSummary, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("SELECT", "affinity_runs", start, err) }()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT id, goal, reference_date, active_days, started_at,
			duration_ms, scored, skipped, skip_counts, mean, median, min, max,
			low_count, medium_count, high_count
		FROM affinity_runs
		WHERE ? = '' OR goal = ?
		ORDER BY started_at DESC
		LIMIT ?`, goal, goal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	runs = make([]RunSummary, 0)
	for rows.Next() {
		var (
			s          RunSummary
			id         string
			durationMS int64
			skipCounts string
		)
		err = rows.Scan(&id, &s.Goal, &s.ReferenceDate, &s.ActiveDays, &s.StartedAt,
			&durationMS, &s.Scored, &s.Skipped, &skipCounts,
			&s.Stats.Mean, &s.Stats.Median, &s.Stats.Min, &s.Stats.Max,
			&s.Stats.Distribution.Low, &s.Stats.Distribution.Medium, &s.Stats.Distribution.High)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("stored run id %q: %w", id, err)
		}
		if err = json.Unmarshal([]byte(skipCounts), &s.SkipCounts); err != nil {
			return nil, fmt.Errorf("failed to decode skip counts: %w", err)
		}
		s.ReferenceDate = s.ReferenceDate.UTC()
		s.StartedAt = s.StartedAt.UTC()
		s.Duration = time.Duration(durationMS) * time.Millisecond
		s.Stats.Count = s.Scored
		runs = append(runs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// RunResults returns the stored results of a run with affinity >= minScore,
// highest affinity first. ErrRunNotFound is returned for an unknown run.
func (db *DB) RunResults(ctx context.Context, runID uuid.UUID, minScore float64) (results []affinity.CustomerAffinityResult, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("SELECT", "affinity_results", start, err) }()

	var exists int
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM affinity_runs WHERE id = ?`, runID.String()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if exists == 0 {
		return nil, ErrRunNotFound
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT customer_id, goal, affinity, max_weighted_signal,
			seed_weights, weighted_signals
		FROM affinity_results
		WHERE run_id = ? AND affinity >= ?
		ORDER BY affinity DESC, customer_id`, runID.String(), minScore)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer closeWithLog(rows, "rows")

	results = make([]affinity.CustomerAffinityResult, 0)
	for rows.Next() {
		var r affinity.CustomerAffinityResult
		var seeds, signals string
		if err = rows.Scan(&r.CustomerID, &r.GoalCategory, &r.Affinity, &r.MaxWeightedSignal, &seeds, &signals); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err = json.Unmarshal([]byte(seeds), &r.SeedWeights); err != nil {
			return nil, fmt.Errorf("failed to decode seed weights: %w", err)
		}
		if err = json.Unmarshal([]byte(signals), &r.WeightedSignals); err != nil {
			return nil, fmt.Errorf("failed to decode weighted signals: %w", err)
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}
