// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package pipeline connects a dataset source to the affinity core and the
// output sinks.
//
// Refresh loads and validates the dataset, builds the CoAffinity matrix and
// publishes both as an immutable Snapshot. Goal runs and single-customer
// scoring read the current snapshot without locking, so the HTTP API keeps
// serving the previous snapshot while a refresh is in progress.
//
//	p, err := pipeline.New(cfg, source, db, logging.Logger())
//	if _, err := p.Refresh(ctx); err != nil {
//	    return err
//	}
//	results, err := p.RunAll(ctx)
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/dataset"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/metrics"
)

var (
	// ErrNotReady is returned when no snapshot has been built yet.
	ErrNotReady = errors.New("no snapshot available")

	// ErrCustomerNotFound is returned when a customer is not in the snapshot.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Snapshot is an immutable view of one dataset and the matrix built from it.
type Snapshot struct {
	Version int64
	BuiltAt time.Time
	Source  string
	Dataset *dataset.Dataset
	Build   *affinity.MatrixBuild

	customers map[string]struct{}
}

// Matrix returns the CoAffinity matrix of the snapshot.
func (s *Snapshot) Matrix() *affinity.CoAffinityMatrix {
	return s.Build.CoAffinity
}

// HasCustomer reports whether customerID is part of the dataset.
func (s *Snapshot) HasCustomer(customerID string) bool {
	_, ok := s.customers[customerID]
	return ok
}

// Pipeline owns the current snapshot and runs goals against it.
// It is safe for concurrent use.
type Pipeline struct {
	cfg          *config.Config
	source       Source
	db           *database.DB
	orchestrator *affinity.Orchestrator
	logger       zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Int64

	// refreshMu serializes refreshes; readers never take it.
	refreshMu sync.Mutex
}

// New creates a pipeline. db is optional; when set, datasets, matrices and
// runs are also stored in DuckDB.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *config.Config, source Source, db *database.DB, logger zerolog.Logger) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("pipeline: source is required")
	}

	orch, err := affinity.NewOrchestrator(cfg.Affinity.PipelineConfig(), logger,
		affinity.WithObserver(metrics.PipelineObserver{}))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	return &Pipeline{
		cfg:          cfg,
		source:       source,
		db:           db,
		orchestrator: orch,
		logger:       logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// Ready reports whether a snapshot is available.
func (p *Pipeline) Ready() bool {
	return p.snapshot.Load() != nil
}

// Refresh loads the dataset, builds the matrix and publishes a new snapshot.
// On failure the previous snapshot stays in place.
func (p *Pipeline) Refresh(ctx context.Context) (snap *Snapshot, err error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	defer func() { metrics.RecordRefresh(err) }()

	ctx = logging.ContextWithRunID(ctx, uuid.NewString())
	logger := logging.Ctx(ctx).With().Str("component", "pipeline").Str("source", p.source.Name()).Logger()

	ds, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if err = ds.Validate(); err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}
	ds.RecomputeTotals()
	if unknown := ds.UnknownCategoryItems(); unknown > 0 {
		logger.Warn().Int("items", unknown).Msg("order items reference unknown categories and are ignored")
	}

	start := time.Now()
	build, err := affinity.BuildMatrix(ds.Orders, ds.Categories, p.orchestrator.Config())
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}
	metrics.RecordMatrixBuild(time.Since(start), len(ds.Categories), len(ds.Orders))

	if err = p.storeSnapshot(ctx, ds, build); err != nil {
		return nil, err
	}

	snap = &Snapshot{
		Version:   p.version.Add(1),
		BuiltAt:   time.Now().UTC(),
		Source:    p.source.Name(),
		Dataset:   ds,
		Build:     build,
		customers: make(map[string]struct{}, len(ds.Customers)),
	}
	for i := range ds.Customers {
		snap.customers[ds.Customers[i].ID] = struct{}{}
	}
	p.snapshot.Store(snap)

	logger.Info().
		Int64("version", snap.Version).
		Int("categories", len(ds.Categories)).
		Int("customers", len(ds.Customers)).
		Int("orders", len(ds.Orders)).
		Float64("lift_p5", build.Stats.LiftP5).
		Float64("lift_p95", build.Stats.LiftP95).
		Dur("duration", time.Since(start)).
		Msg("snapshot refreshed")

	return snap, nil
}

// storeSnapshot writes matrix outputs and, with a database, mirrors the
// dataset and stores the matrix.
func (p *Pipeline) storeSnapshot(ctx context.Context, ds *dataset.Dataset, build *affinity.MatrixBuild) error {
	if p.cfg.Output.Dir != "" {
		if _, err := dataset.WriteMatrix(p.cfg.Output.Dir, build.CoAffinity); err != nil {
			return fmt.Errorf("write matrix: %w", err)
		}
		if _, err := dataset.WriteMatrixStats(p.cfg.Output.Dir, build.Stats); err != nil {
			return fmt.Errorf("write matrix stats: %w", err)
		}
	}

	if p.db == nil {
		return nil
	}
	if _, ok := p.source.(DBSource); !ok {
		if err := p.db.SaveDataset(ctx, ds); err != nil {
			return fmt.Errorf("store dataset in database: %w", err)
		}
	}
	if _, err := p.db.SaveMatrix(ctx, build.CoAffinity, build.Stats); err != nil {
		return fmt.Errorf("store matrix in database: %w", err)
	}
	return nil
}

// Goals returns the configured goal categories, or every matrix category
// when none are configured.
func (p *Pipeline) Goals() ([]string, error) {
	snap := p.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if len(p.cfg.Affinity.Goals) > 0 {
		return append([]string(nil), p.cfg.Affinity.Goals...), nil
	}
	return append([]string(nil), snap.Matrix().Categories...), nil
}

// Evaluate scores every customer for goal against the current snapshot
// without writing outputs.
func (p *Pipeline) Evaluate(ctx context.Context, goal string) (*affinity.BatchResult, error) {
	return p.EvaluateSnapshot(ctx, p.snapshot.Load(), goal)
}

// EvaluateSnapshot scores goal against a specific snapshot. Callers that key
// caches by snapshot version use it to keep the key and the result in step.
func (p *Pipeline) EvaluateSnapshot(ctx context.Context, snap *Snapshot, goal string) (*affinity.BatchResult, error) {
	if snap == nil {
		return nil, ErrNotReady
	}
	return p.orchestrator.Run(ctx, p.request(snap, goal))
}

// RunGoal scores goal and persists the result to the output directory and,
// when configured, DuckDB.
func (p *Pipeline) RunGoal(ctx context.Context, goal string) (*affinity.BatchResult, error) {
	result, err := p.Evaluate(ctx, goal)
	if err != nil {
		return nil, err
	}
	if err := p.persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RunAll runs every goal returned by Goals. It stops at the first error;
// an unknown configured goal is an error.
func (p *Pipeline) RunAll(ctx context.Context) ([]*affinity.BatchResult, error) {
	goals, err := p.Goals()
	if err != nil {
		return nil, err
	}

	results := make([]*affinity.BatchResult, 0, len(goals))
	for _, goal := range goals {
		result, err := p.RunGoal(ctx, goal)
		if err != nil {
			return results, fmt.Errorf("goal %q: %w", goal, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ScoreCustomer scores one customer for goal. A skipped customer returns a
// nil result and the skip reason.
func (p *Pipeline) ScoreCustomer(goal, customerID string) (*affinity.CustomerAffinityResult, affinity.SkipReason, error) {
	snap := p.snapshot.Load()
	if snap == nil {
		return nil, "", ErrNotReady
	}
	if !snap.HasCustomer(customerID) {
		return nil, "", fmt.Errorf("%w: %q", ErrCustomerNotFound, customerID)
	}
	return p.orchestrator.ScoreCustomer(customerID, p.request(snap, goal))
}

func (p *Pipeline) request(snap *Snapshot, goal string) affinity.BatchRequest {
	// Validated at config load.
	ref, _ := p.cfg.Affinity.ReferenceTime() //nolint:errcheck // validated in config.Validate

	return affinity.BatchRequest{
		Customers:     snap.Dataset.Customers,
		Orders:        snap.Dataset.Orders,
		Matrix:        snap.Matrix(),
		Goal:          goal,
		ActiveDays:    p.cfg.Affinity.ActiveDays,
		ReferenceDate: ref,
	}
}

func (p *Pipeline) persist(ctx context.Context, result *affinity.BatchResult) error {
	logger := p.logger.With().Str("goal", result.Goal).Str("run_id", result.RunID.String()).Logger()

	if p.cfg.Output.Dir != "" {
		path, err := dataset.WriteBatch(p.cfg.Output.Dir, result)
		if err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		logger.Debug().Str("path", path).Msg("results written")

		if p.cfg.Output.CSV {
			if path, err = dataset.WriteResultsCSV(p.cfg.Output.Dir, result); err != nil {
				return fmt.Errorf("write results csv: %w", err)
			}
			logger.Debug().Str("path", path).Msg("results csv written")
		}
	}

	if p.db != nil {
		if err := p.db.SaveBatch(ctx, result); err != nil {
			return fmt.Errorf("store run in database: %w", err)
		}
	}
	return nil
}
