// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/affinity/internal/models"
)

// BatchRequest describes one goal-category scoring run.
type BatchRequest struct {
	Customers []models.Customer
	Orders    []models.Order
	Matrix    *CoAffinityMatrix
	Goal      string

	// ActiveDays overrides the configured activity window. Zero selects
	// Config.Eligibility.ActiveDays; negative values are rejected with
	// ErrInvalidActiveDays.
	ActiveDays int

	// ReferenceDate anchors the activity window. Zero means the start of
	// the current UTC day, so runs on the same day share one cutoff.
	ReferenceDate time.Time
}

// SkippedCustomer records a customer excluded from scoring.
type SkippedCustomer struct {
	CustomerID string     `json:"customer_id"`
	Reason     SkipReason `json:"reason"`
}

// BatchResult is the outcome of scoring every customer for one goal.
type BatchResult struct {
	RunID         uuid.UUID                `json:"run_id"`
	Goal          string                   `json:"goal"`
	ReferenceDate time.Time                `json:"reference_date"`
	ActiveDays    int                      `json:"active_days"`
	Results       []CustomerAffinityResult `json:"results"`
	Skipped       []SkippedCustomer        `json:"skipped"`
	SkipCounts    map[SkipReason]int       `json:"skip_counts"`
	Stats         AffinityStats            `json:"stats"`
	StartedAt     time.Time                `json:"started_at"`
	Duration      time.Duration            `json:"duration"`
}

// Orchestrator scores all customers of a dataset against a goal category.
// It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	config   *Config
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(orch *Orchestrator) {
		if o != nil {
			orch.observer = o
		}
	}
}

// NewOrchestrator creates an orchestrator. A nil config uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(cfg *Config, logger zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &Orchestrator{
		config:   cfg.Clone(),
		logger:   logger.With().Str("component", "affinity").Logger(),
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns a copy of the orchestrator configuration.
func (o *Orchestrator) Config() *Config {
	return o.config.Clone()
}

// outcome is the per-customer result slot filled by workers.
type outcome struct {
	result *CustomerAffinityResult
	reason SkipReason
}

// Run scores every customer in req. An unknown goal aborts the run before
// any customer is processed. Results and skips keep the input customer order.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) Run(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	start := time.Now()

	if req.Matrix == nil {
		return nil, fmt.Errorf("run %q: matrix is required", req.Goal)
	}
	if !req.Matrix.Has(req.Goal) {
		return nil, &UnknownGoalError{Goal: req.Goal, Valid: req.Matrix.Categories}
	}

	req, err := o.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With().
		Str("goal", req.Goal).
		Int("active_days", req.ActiveDays).
		Time("reference_date", req.ReferenceDate).
		Logger()
	logger.Debug().Int("customers", len(req.Customers)).Msg("starting affinity batch")

	byCustomer := GroupOrdersByCustomer(req.Orders)
	outcomes := make([]outcome, len(req.Customers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.config.Workers, 1))

	for i := range req.Customers {
		customerID := req.Customers[i].ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o.evaluate(customerID, byCustomer[customerID], &req)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %q: %w", req.Goal, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %q: %w", req.Goal, err)
	}

	result := o.collect(&req, outcomes, start)

	logger.Info().
		Int("scored", len(result.Results)).
		Int("skipped", len(result.Skipped)).
		Float64("mean", result.Stats.Mean).
		Float64("median", result.Stats.Median).
		Dur("duration", result.Duration).
		Msg("affinity batch complete")

	o.observer.BatchCompleted(req.Goal, result.Stats, result.Duration)
	return result, nil
}

// ScoreCustomer evaluates a single customer for goal. It returns either a
// result or the reason the customer was skipped.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) ScoreCustomer(customerID string, req BatchRequest) (*CustomerAffinityResult, SkipReason, error) {
	if req.Matrix == nil {
		return nil, "", fmt.Errorf("score %q: matrix is required", req.Goal)
	}
	if !req.Matrix.Has(req.Goal) {
		return nil, "", &UnknownGoalError{Goal: req.Goal, Valid: req.Matrix.Categories}
	}

	req, err := o.prepareRequest(req)
	if err != nil {
		return nil, "", err
	}
	out := o.evaluate(customerID, req.Orders, &req)
	return out.result, out.reason, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) prepareRequest(req BatchRequest) (BatchRequest, error) {
	switch {
	case req.ActiveDays < 0:
		return req, fmt.Errorf("run %q: %w, got %d", req.Goal, ErrInvalidActiveDays, req.ActiveDays)
	case req.ActiveDays == 0:
		req.ActiveDays = o.config.Eligibility.ActiveDays
	}
	if req.ReferenceDate.IsZero() {
		req.ReferenceDate = o.now().UTC().Truncate(24 * time.Hour)
	}
	return req, nil
}

// evaluate runs history, eligibility and scoring for one customer.
func (o *Orchestrator) evaluate(customerID string, orders []models.Order, req *BatchRequest) outcome {
	history, ok := BuildHistory(customerID, orders)
	if !ok {
		o.observer.CustomerSkipped(req.Goal, string(SkipNoOrders))
		return outcome{reason: SkipNoOrders}
	}

	eligible, reason := CheckEligibility(history, req.Goal, req.ActiveDays, req.ReferenceDate)
	if !eligible {
		o.observer.CustomerSkipped(req.Goal, string(reason))
		return outcome{reason: reason}
	}

	seeds := ComputeSeedWeights(history, o.config.Weights)
	result := Score(customerID, req.Goal, seeds, req.Matrix)
	o.observer.CustomerScored(req.Goal, result.Affinity)
	return outcome{result: &result}
}

// collect merges worker outcomes in customer order and computes statistics.
func (o *Orchestrator) collect(req *BatchRequest, outcomes []outcome, start time.Time) *BatchResult {
	result := &BatchResult{
		RunID:         uuid.New(),
		Goal:          req.Goal,
		ReferenceDate: req.ReferenceDate,
		ActiveDays:    req.ActiveDays,
		Results:       make([]CustomerAffinityResult, 0, len(outcomes)),
		Skipped:       make([]SkippedCustomer, 0),
		SkipCounts:    make(map[SkipReason]int),
		StartedAt:     start,
	}

	scores := make([]float64, 0, len(outcomes))
	for i, out := range outcomes {
		if out.result == nil {
			result.Skipped = append(result.Skipped, SkippedCustomer{
				CustomerID: req.Customers[i].ID,
				Reason:     out.reason,
			})
			result.SkipCounts[out.reason]++
			continue
		}
		result.Results = append(result.Results, *out.result)
		scores = append(scores, out.result.Affinity)
	}

	result.Stats = ComputeStats(scores, o.config.Distribution)
	result.Duration = time.Since(start)
	return result
}
