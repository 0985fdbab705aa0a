// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/models"
)

// recordingObserver counts events for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	scored    int
	skipped   map[string]int
	completed int
}

func (r *recordingObserver) CustomerScored(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scored++
}

func (r *recordingObserver) CustomerSkipped(_ string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipped == nil {
		r.skipped = make(map[string]int)
	}
	r.skipped[reason]++
}

func (r *recordingObserver) BatchCompleted(string, AffinityStats, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func sampleCustomers() []models.Customer {
	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	customers := make([]models.Customer, len(ids))
	for i, id := range ids {
		customers[i] = models.Customer{ID: id}
	}
	return customers
}

func sampleRequest(t *testing.T, goal string) BatchRequest {
	t.Helper()
	orders := sampleOrders()
	build, err := BuildMatrix(orders, sampleCategories(), nil)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	return BatchRequest{
		Customers:     sampleCustomers(),
		Orders:        orders,
		Matrix:        build.CoAffinity,
		Goal:          goal,
		ActiveDays:    90,
		ReferenceDate: refDate,
	}
}

func TestOrchestrator_Run(t *testing.T) {
	obs := &recordingObserver{}
	orch, err := NewOrchestrator(nil, zerolog.Nop(), WithObserver(obs))
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	result, err := orch.Run(context.Background(), sampleRequest(t, "stationery"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// c1, c3, c4, c6 are eligible. c2 and c5 bought stationery, c7 has no orders.
	wantScored := []string{"c1", "c3", "c4", "c6"}
	if len(result.Results) != len(wantScored) {
		t.Fatalf("len(Results) = %d, want %d", len(result.Results), len(wantScored))
	}
	for i, id := range wantScored {
		if result.Results[i].CustomerID != id {
			t.Errorf("Results[%d].CustomerID = %q, want %q", i, result.Results[i].CustomerID, id)
		}
		if result.Results[i].GoalCategory != "stationery" {
			t.Errorf("Results[%d].GoalCategory = %q, want stationery", i, result.Results[i].GoalCategory)
		}
	}

	if got := result.SkipCounts[SkipAlreadyPurchased]; got != 2 {
		t.Errorf("SkipCounts[already purchased] = %d, want 2", got)
	}
	if got := result.SkipCounts[SkipNoOrders]; got != 1 {
		t.Errorf("SkipCounts[no orders] = %d, want 1", got)
	}
	if result.Stats.Count != len(wantScored) {
		t.Errorf("Stats.Count = %d, want %d", result.Stats.Count, len(wantScored))
	}
	if result.RunID == uuid.Nil {
		t.Error("RunID is nil")
	}

	if obs.scored != 4 || obs.completed != 1 {
		t.Errorf("observer scored/completed = %d/%d, want 4/1", obs.scored, obs.completed)
	}
	if obs.skipped[string(SkipNoOrders)] != 1 {
		t.Errorf("observer skipped[no orders] = %d, want 1", obs.skipped[string(SkipNoOrders)])
	}
}

func TestOrchestrator_Run_InactiveSkipped(t *testing.T) {
	orch, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	req := sampleRequest(t, "electronics")
	req.ActiveDays = 4

	result, err := orch.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Only c4 (3 days ago) is active and has not bought electronics.
	if len(result.Results) != 1 || result.Results[0].CustomerID != "c4" {
		t.Errorf("Results = %+v, want only c4", result.Results)
	}
	if got := result.SkipCounts[SkipInactive]; got != 2 {
		t.Errorf("SkipCounts[inactive] = %d, want 2", got)
	}
}

func TestOrchestrator_Run_UnknownGoal(t *testing.T) {
	orch, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	result, err := orch.Run(context.Background(), sampleRequest(t, "garden"))
	if result != nil {
		t.Errorf("Run() result = %+v, want nil", result)
	}
	if !errors.Is(err, ErrUnknownGoalCategory) {
		t.Fatalf("Run() error = %v, want ErrUnknownGoalCategory", err)
	}

	var goalErr *UnknownGoalError
	if !errors.As(err, &goalErr) {
		t.Fatalf("Run() error = %T, want *UnknownGoalError", err)
	}
	if goalErr.Goal != "garden" || len(goalErr.Valid) != 5 {
		t.Errorf("UnknownGoalError = %+v, want goal garden with 5 valid", goalErr)
	}
}

func TestOrchestrator_Run_WorkersMatchSequential(t *testing.T) {
	seq, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Workers = 4
	par, err := NewOrchestrator(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	req := sampleRequest(t, "toys")
	want, err := seq.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("sequential Run() error = %v", err)
	}
	got, err := par.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("parallel Run() error = %v", err)
	}

	if len(got.Results) != len(want.Results) {
		t.Fatalf("len(Results) = %d, want %d", len(got.Results), len(want.Results))
	}
	for i := range want.Results {
		if got.Results[i].CustomerID != want.Results[i].CustomerID {
			t.Errorf("Results[%d] = %q, want %q", i, got.Results[i].CustomerID, want.Results[i].CustomerID)
		}
		if !approxEqual(got.Results[i].Affinity, want.Results[i].Affinity) {
			t.Errorf("Results[%d].Affinity = %v, want %v", i, got.Results[i].Affinity, want.Results[i].Affinity)
		}
	}
	if got.Stats != want.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, want.Stats)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	orch, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = orch.Run(ctx, sampleRequest(t, "toys"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestOrchestrator_ScoreCustomer(t *testing.T) {
	orch, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	req := sampleRequest(t, "stationery")

	result, reason, err := orch.ScoreCustomer("c1", req)
	if err != nil {
		t.Fatalf("ScoreCustomer() error = %v", err)
	}
	if result == nil || reason != "" {
		t.Fatalf("ScoreCustomer(c1) = %v, %q, want result", result, reason)
	}
	if result.Affinity <= 0 || result.Affinity >= 1 {
		t.Errorf("Affinity = %v, want within (0, 1)", result.Affinity)
	}

	result, reason, err = orch.ScoreCustomer("c2", req)
	if err != nil {
		t.Fatalf("ScoreCustomer() error = %v", err)
	}
	if result != nil || reason != SkipAlreadyPurchased {
		t.Errorf("ScoreCustomer(c2) = %v, %q, want skip %q", result, reason, SkipAlreadyPurchased)
	}
}

func TestOrchestrator_Run_ActiveDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Eligibility.ActiveDays = 4
	orch, err := NewOrchestrator(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	tests := []struct {
		name       string
		activeDays int
		wantDays   int
		wantErr    error
	}{
		{name: "explicit window", activeDays: 90, wantDays: 90},
		{name: "zero uses configured window", activeDays: 0, wantDays: 4},
		{name: "negative rejected", activeDays: -1, wantErr: ErrInvalidActiveDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleRequest(t, "electronics")
			req.ActiveDays = tt.activeDays

			result, err := orch.Run(context.Background(), req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
				}
				if _, _, err := orch.ScoreCustomer("c1", req); !errors.Is(err, tt.wantErr) {
					t.Errorf("ScoreCustomer() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.ActiveDays != tt.wantDays {
				t.Errorf("ActiveDays = %d, want %d", result.ActiveDays, tt.wantDays)
			}
		})
	}
}

func TestOrchestrator_Run_DefaultReferenceDate(t *testing.T) {
	orch, err := NewOrchestrator(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	for _, clock := range []time.Time{
		time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("UTC-8", -8*3600)),
	} {
		orch.now = func() time.Time { return clock }

		req := sampleRequest(t, "electronics")
		req.ReferenceDate = time.Time{}
		result, err := orch.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		want := time.Date(clock.UTC().Year(), clock.UTC().Month(), clock.UTC().Day(), 0, 0, 0, 0, time.UTC)
		if !result.ReferenceDate.Equal(want) {
			t.Errorf("now = %v: ReferenceDate = %v, want %v", clock, result.ReferenceDate, want)
		}
	}
}

func TestNewOrchestrator_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.LiftWeight = -1
	if _, err := NewOrchestrator(cfg, zerolog.Nop()); err == nil {
		t.Error("NewOrchestrator() = nil error, want error")
	}
}

func TestComputeStats(t *testing.T) {
	dist := DefaultConfig().Distribution

	tests := []struct {
		name   string
		values []float64
		want   AffinityStats
	}{
		{
			name:   "empty",
			values: nil,
			want:   AffinityStats{},
		},
		{
			name:   "odd count",
			values: []float64{0.9, 0.1, 0.5},
			want: AffinityStats{
				Count: 3, Mean: 0.5, Median: 0.5, Min: 0.1, Max: 0.9,
				Distribution: Distribution{Low: 1, Medium: 1, High: 1},
			},
		},
		{
			name:   "even count averages middle values",
			values: []float64{0.2, 0.4, 0.6, 0.8},
			want: AffinityStats{
				Count: 4, Mean: 0.5, Median: 0.5, Min: 0.2, Max: 0.8,
				Distribution: Distribution{Low: 1, Medium: 2, High: 1},
			},
		},
		{
			name:   "threshold boundaries",
			values: []float64{0.33, 0.66},
			want: AffinityStats{
				Count: 2, Mean: 0.495, Median: 0.495, Min: 0.33, Max: 0.66,
				Distribution: Distribution{Low: 0, Medium: 1, High: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.values, dist)
			if got.Count != tt.want.Count {
				t.Errorf("Count = %d, want %d", got.Count, tt.want.Count)
			}
			if !approxEqual(got.Mean, tt.want.Mean) {
				t.Errorf("Mean = %v, want %v", got.Mean, tt.want.Mean)
			}
			if !approxEqual(got.Median, tt.want.Median) {
				t.Errorf("Median = %v, want %v", got.Median, tt.want.Median)
			}
			if got.Min != tt.want.Min || got.Max != tt.want.Max {
				t.Errorf("Min/Max = %v/%v, want %v/%v", got.Min, got.Max, tt.want.Min, tt.want.Max)
			}
			if got.Distribution != tt.want.Distribution {
				t.Errorf("Distribution = %+v, want %+v", got.Distribution, tt.want.Distribution)
			}
		})
	}
}
