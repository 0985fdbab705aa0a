// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package affinity

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/models"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "empty", values: nil, p: 50, want: 0},
		{name: "single value", values: []float64{7}, p: 95, want: 7},
		{name: "p0 is min", values: []float64{4, 1, 5, 2, 3}, p: 0, want: 1},
		{name: "p100 is max", values: []float64{4, 1, 5, 2, 3}, p: 100, want: 5},
		{name: "median odd", values: []float64{5, 1, 3}, p: 50, want: 3},
		{name: "exact rank", values: []float64{1, 2, 3, 4, 5}, p: 25, want: 2},
		{name: "interpolated", values: []float64{1, 2, 3, 4, 5}, p: 10, want: 1.4},
		{name: "p5 of six", values: []float64{1, 2, 3, 4, 5, 6}, p: 5, want: 1.25},
		{name: "p95 of six", values: []float64{1, 2, 3, 4, 5, 6}, p: 95, want: 5.75},
		{name: "above 100 extrapolates", values: []float64{10, 20, 30}, p: 150, want: 40},
		{name: "below 0 extrapolates", values: []float64{10, 20, 30}, p: -50, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.values, tt.p)
			if !approxEqual(got, tt.want) {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
			}
		})
	}
}

func TestPercentile_DoesNotModifyInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 50)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input modified: %v", values)
	}
}

func TestBuildCoOccurrence(t *testing.T) {
	t.Run("distinct categories per order", func(t *testing.T) {
		orders := []models.Order{
			newOrder("c1", 1, "a", "a", "b"),
			newOrder("c1", 2, "a"),
		}
		co := BuildCoOccurrence(orders, testCategories("a", "b"))

		if co.TotalOrders != 2 {
			t.Errorf("TotalOrders = %d, want 2", co.TotalOrders)
		}
		if co.OrderCounts[0] != 2 {
			t.Errorf("OrderCounts[a] = %d, want 2", co.OrderCounts[0])
		}
		if co.Counts[0][1] != 1 {
			t.Errorf("Counts[a][b] = %d, want 1", co.Counts[0][1])
		}
		if co.Counts[0][0] != 0 {
			t.Errorf("Counts[a][a] = %d, want 0", co.Counts[0][0])
		}
	})

	t.Run("unknown categories ignored", func(t *testing.T) {
		orders := []models.Order{newOrder("c1", 1, "a", "unknown", "b")}
		co := BuildCoOccurrence(orders, testCategories("a", "b"))

		if co.Counts[0][1] != 1 || co.Counts[1][0] != 1 {
			t.Errorf("Counts[a][b] = %d/%d, want 1/1", co.Counts[0][1], co.Counts[1][0])
		}
		if len(co.OrderCounts) != 2 {
			t.Errorf("len(OrderCounts) = %d, want 2", len(co.OrderCounts))
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		co := BuildCoOccurrence(sampleOrders(), sampleCategories())
		assertSymmetricZeroDiagonal(t, "co", co.Float())
	})

	t.Run("order counts by id", func(t *testing.T) {
		co := BuildCoOccurrence(sampleOrders(), sampleCategories())
		counts := co.OrderCountsByID()
		want := map[string]int{"electronics": 4, "accessories": 4, "books": 5, "stationery": 3, "toys": 3}
		for id, n := range want {
			if counts[id] != n {
				t.Errorf("OrderCountsByID()[%q] = %d, want %d", id, counts[id], n)
			}
		}
	})
}

func TestComputeLift(t *testing.T) {
	t.Run("worked example", func(t *testing.T) {
		// A and B together in 3 of 10 orders, A in 5, B in 4.
		var orders []models.Order
		orders = append(orders, repeatOrders(3, "A", "B")...)
		orders = append(orders, repeatOrders(2, "A")...)
		orders = append(orders, repeatOrders(1, "B")...)
		orders = append(orders, repeatOrders(4, "C")...)

		lift := ComputeLift(BuildCoOccurrence(orders, testCategories("A", "B", "C")))
		if got := lift.Values[0][1]; !approxEqual(got, 1.5) {
			t.Errorf("lift(A, B) = %v, want 1.5", got)
		}
		if got := lift.Values[0][2]; got != 0 {
			t.Errorf("lift(A, C) = %v, want 0", got)
		}
	})

	t.Run("zero order count yields zero", func(t *testing.T) {
		orders := repeatOrders(3, "A", "B")
		lift := ComputeLift(BuildCoOccurrence(orders, testCategories("A", "B", "Z")))
		if lift.Values[0][2] != 0 || lift.Values[2][0] != 0 {
			t.Errorf("lift(A, Z) = %v, want 0", lift.Values[0][2])
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		lift := ComputeLift(BuildCoOccurrence(sampleOrders(), sampleCategories()))
		assertSymmetricZeroDiagonal(t, "lift", lift.Values)
	})

	t.Run("scale invariant", func(t *testing.T) {
		co := BuildCoOccurrence(sampleOrders(), sampleCategories())
		base := ComputeLift(co)

		const k = 7
		scaled := &CoOccurrenceMatrix{
			Categories:  co.Categories,
			Counts:      make([][]int, len(co.Counts)),
			TotalOrders: co.TotalOrders * k,
			OrderCounts: make([]int, len(co.OrderCounts)),
		}
		for i, row := range co.Counts {
			scaled.Counts[i] = make([]int, len(row))
			for j, v := range row {
				scaled.Counts[i][j] = v * k
			}
			scaled.OrderCounts[i] = co.OrderCounts[i] * k
		}

		got := ComputeLift(scaled)
		for i := range base.Values {
			for j := range base.Values[i] {
				if !approxEqual(got.Values[i][j], base.Values[i][j]) {
					t.Errorf("scaled lift[%d][%d] = %v, want %v", i, j, got.Values[i][j], base.Values[i][j])
				}
			}
		}
	})
}

func TestComputeBounds(t *testing.T) {
	values := [][]float64{
		{0, 1, 2, 3},
		{1, 0, 4, 5},
		{2, 4, 0, 6},
		{3, 5, 6, 0},
	}
	b := ComputeBounds(values, NormalizationConfig{LowerPercentile: 5, UpperPercentile: 95})
	if !approxEqual(b.Lower, 1.25) {
		t.Errorf("Lower = %v, want 1.25", b.Lower)
	}
	if !approxEqual(b.Upper, 5.75) {
		t.Errorf("Upper = %v, want 5.75", b.Upper)
	}

	t.Run("ignores non-positive values", func(t *testing.T) {
		values := [][]float64{
			{0, 0, -1},
			{0, 0, 2},
			{-1, 2, 0},
		}
		b := ComputeBounds(values, NormalizationConfig{LowerPercentile: 0, UpperPercentile: 100})
		if b.Lower != 2 || b.Upper != 2 {
			t.Errorf("bounds = %+v, want {2 2}", b)
		}
	})

	t.Run("empty sample", func(t *testing.T) {
		b := ComputeBounds(newSquare(3), NormalizationConfig{LowerPercentile: 5, UpperPercentile: 95})
		if b.Lower != 0 || b.Upper != 0 {
			t.Errorf("bounds = %+v, want zero", b)
		}
	})
}

func TestNormalizeWithBounds(t *testing.T) {
	cats := []string{"a", "b", "c", "d"}
	values := [][]float64{
		{9, 1, 2, 3},
		{1, 9, 5, 6},
		{2, 5, 9, 3.5},
		{3, 6, 3.5, 9},
	}

	n := NormalizeWithBounds(cats, values, Bounds{Lower: 2, Upper: 5})

	tests := []struct {
		name string
		i, j int
		want float64
	}{
		{name: "below lower clamps to 0", i: 0, j: 1, want: 0},
		{name: "at lower maps to 0", i: 0, j: 2, want: 0},
		{name: "inside window", i: 0, j: 3, want: 1.0 / 3},
		{name: "at upper maps to 1", i: 1, j: 2, want: 1},
		{name: "above upper clamps to 1", i: 1, j: 3, want: 1},
		{name: "midpoint", i: 2, j: 3, want: 0.5},
		{name: "diagonal forced to 0", i: 2, j: 2, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Values[tt.i][tt.j]; !approxEqual(got, tt.want) {
				t.Errorf("Values[%d][%d] = %v, want %v", tt.i, tt.j, got, tt.want)
			}
		})
	}

	assertSymmetricZeroDiagonal(t, "normalized", n.Values)
}

func TestNormalizeWithBounds_FlatBounds(t *testing.T) {
	values := [][]float64{
		{0, 3, 3},
		{3, 0, 3},
		{3, 3, 0},
	}
	n := NormalizeWithBounds([]string{"a", "b", "c"}, values, Bounds{Lower: 3, Upper: 3})
	for i := range n.Values {
		for j := range n.Values[i] {
			if n.Values[i][j] != 0 {
				t.Errorf("Values[%d][%d] = %v, want 0", i, j, n.Values[i][j])
			}
		}
	}
}

func TestNormalize_Range(t *testing.T) {
	lift := ComputeLift(BuildCoOccurrence(sampleOrders(), sampleCategories()))
	n := Normalize(lift.Categories, lift.Values, DefaultConfig().Normalization)

	for i := range n.Values {
		for j := range n.Values[i] {
			if v := n.Values[i][j]; v < 0 || v > 1 {
				t.Errorf("Values[%d][%d] = %v, want within [0, 1]", i, j, v)
			}
		}
	}
	assertSymmetricZeroDiagonal(t, "normalized", n.Values)
}

func TestCompose(t *testing.T) {
	cats := []string{"a", "b", "c"}
	ones := [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}
	halves := [][]float64{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}

	t.Run("weighted blend", func(t *testing.T) {
		lift := &NormalizedMatrix{Categories: cats, Values: ones}
		co := &NormalizedMatrix{Categories: cats, Values: halves}

		m, err := Compose(lift, co, DefaultWeights())
		if err != nil {
			t.Fatalf("Compose() error = %v", err)
		}
		if got := m.Value("a", "b"); !approxEqual(got, 0.85) {
			t.Errorf("Value(a, b) = %v, want 0.85", got)
		}
		if got := m.Value("c", "c"); got != 0 {
			t.Errorf("Value(c, c) = %v, want 0", got)
		}
	})

	t.Run("alternate weights", func(t *testing.T) {
		lift := &NormalizedMatrix{Categories: cats, Values: ones}
		co := &NormalizedMatrix{Categories: cats, Values: halves}

		w := DefaultWeights()
		w.LiftWeight, w.CoOrdersWeight = 0, 1
		m, err := Compose(lift, co, w)
		if err != nil {
			t.Fatalf("Compose() error = %v", err)
		}
		if got := m.Value("b", "c"); !approxEqual(got, 0.5) {
			t.Errorf("Value(b, c) = %v, want 0.5", got)
		}
	})

	t.Run("category mismatch", func(t *testing.T) {
		lift := &NormalizedMatrix{Categories: cats, Values: ones}
		co := &NormalizedMatrix{Categories: []string{"a", "c", "b"}, Values: halves}

		_, err := Compose(lift, co, DefaultWeights())
		if !errors.Is(err, ErrCategoryMismatch) {
			t.Errorf("Compose() error = %v, want ErrCategoryMismatch", err)
		}
	})
}

func TestBuildMatrix(t *testing.T) {
	build, err := BuildMatrix(sampleOrders(), sampleCategories(), nil)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	assertSymmetricZeroDiagonal(t, "coaffinity", build.CoAffinity.Matrix)

	for i, row := range build.CoAffinity.Matrix {
		for j, v := range row {
			if v < 0 || v > 1 {
				t.Errorf("coaffinity[%d][%d] = %v, want within [0, 1]", i, j, v)
			}
		}
	}

	if build.Stats.TotalOrders != 10 {
		t.Errorf("Stats.TotalOrders = %d, want 10", build.Stats.TotalOrders)
	}
	if build.Stats.CategoryOrderCounts["books"] != 5 {
		t.Errorf("Stats.CategoryOrderCounts[books] = %d, want 5", build.Stats.CategoryOrderCounts["books"])
	}
	if build.Stats.LiftP5 > build.Stats.LiftP95 {
		t.Errorf("LiftP5 %v > LiftP95 %v", build.Stats.LiftP5, build.Stats.LiftP95)
	}

	// The strongest association in the sample is electronics/accessories.
	related := build.CoAffinity.Related("electronics", 1)
	if len(related) != 1 || related[0].CategoryID != "accessories" {
		t.Errorf("Related(electronics, 1) = %+v, want accessories first", related)
	}
}

func TestCoAffinityMatrix_JSON(t *testing.T) {
	m, err := NewCoAffinityMatrix([]string{"a", "b"}, [][]float64{{0, 0.4}, {0.4, 0}})
	if err != nil {
		t.Fatalf("NewCoAffinityMatrix() error = %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded CoAffinityMatrix
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := decoded.Value("b", "a"); got != 0.4 {
		t.Errorf("decoded Value(b, a) = %v, want 0.4", got)
	}
	if !decoded.Has("a") || decoded.Has("z") {
		t.Error("decoded index not rebuilt")
	}

	err = json.Unmarshal([]byte(`{"categories":["a","b"],"matrix":[[0,1]]}`), &decoded)
	if !errors.Is(err, ErrNotSquare) {
		t.Errorf("Unmarshal(non-square) error = %v, want ErrNotSquare", err)
	}
}

func TestCoAffinityMatrix_Related(t *testing.T) {
	m, err := NewCoAffinityMatrix(
		[]string{"a", "b", "c", "d"},
		[][]float64{
			{0, 0.2, 0.9, 0.5},
			{0.2, 0, 0.1, 0.1},
			{0.9, 0.1, 0, 0.3},
			{0.5, 0.1, 0.3, 0},
		},
	)
	if err != nil {
		t.Fatalf("NewCoAffinityMatrix() error = %v", err)
	}

	tests := []struct {
		name     string
		category string
		limit    int
		want     []string
	}{
		{name: "all", category: "a", limit: 0, want: []string{"c", "d", "b"}},
		{name: "limited", category: "a", limit: 2, want: []string{"c", "d"}},
		{name: "unknown", category: "z", limit: 5, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Related(tt.category, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("len(Related()) = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].CategoryID != id {
					t.Errorf("Related()[%d] = %q, want %q", i, got[i].CategoryID, id)
				}
			}
		})
	}
}
