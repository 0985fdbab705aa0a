// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/affinity/internal/affinity"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/dataset"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/pipeline"
)

var refDay = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type testServer struct {
	handler  http.Handler
	pipeline *pipeline.Pipeline
	db       *database.DB
}

func testDataset() *dataset.Dataset {
	order := func(id, customer string, daysAgo int, cats ...string) models.Order {
		items := make([]models.OrderItem, len(cats))
		for i, c := range cats {
			items[i] = models.OrderItem{CategoryID: c, Quantity: 1, Price: decimal.NewFromInt(10)}
		}
		return models.Order{ID: id, CustomerID: customer, CreatedAt: refDay.AddDate(0, 0, -daysAgo), Items: items}
	}

	return &dataset.Dataset{
		Categories: []models.Category{
			{ID: "books", Name: "Books", BaseWeight: 1},
			{ID: "stationery", Name: "Stationery", BaseWeight: 1},
			{ID: "toys", Name: "Toys", BaseWeight: 1},
		},
		Customers: []models.Customer{
			{ID: "c1", Name: "Ada"},
			{ID: "c2", Name: "Bo"},
			{ID: "c3", Name: "Cy"},
		},
		Orders: []models.Order{
			order("o1", "c1", 1, "books", "stationery"),
			order("o2", "c2", 5, "books", "toys"),
			order("o3", "c1", 20, "stationery"),
			order("o4", "c2", 30, "books", "stationery", "toys"),
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	if err := testDataset().SaveDir(dir); err != nil {
		t.Fatalf("SaveDir() error = %v", err)
	}

	policy := affinity.DefaultConfig()
	return &config.Config{
		Data: config.DataConfig{Dir: dir, Source: config.SourceFiles},
		Affinity: config.AffinityConfig{
			ActiveDays:       90,
			ReferenceDate:    refDay.Format(time.DateOnly),
			Workers:          2,
			LiftWeight:       policy.Weights.LiftWeight,
			CoOrdersWeight:   policy.Weights.CoOrdersWeight,
			RecencyLastOrder: policy.Weights.RecencyLastOrder,
			RecencyDefault:   policy.Weights.RecencyDefault,
			FrequencyBase:    policy.Weights.FrequencyBase,
			FrequencySlope:   policy.Weights.FrequencySlope,
			FrequencyCap:     policy.Weights.FrequencyCap,
			LowerPercentile:  policy.Normalization.LowerPercentile,
			UpperPercentile:  policy.Normalization.UpperPercentile,
			LowThreshold:     policy.Distribution.LowThreshold,
			HighThreshold:    policy.Distribution.HighThreshold,
		},
	}
}

// setupTestServer builds a server over the test dataset. refresh controls
// whether a snapshot exists; withDB attaches an in-memory DuckDB.
func setupTestServer(t *testing.T, refresh, withDB bool, mw *MiddlewareConfig) *testServer {
	t.Helper()

	cfg := testConfig(t)

	var db *database.DB
	if withDB {
		var err error
		db, err = database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
		if err != nil {
			t.Fatalf("database.New() error = %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}

	source, err := pipeline.NewSource(cfg, db)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	p, err := pipeline.New(cfg, source, db, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("pipeline.New() error = %v", err)
	}
	if refresh {
		if _, err := p.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}

	if mw == nil {
		mw = DefaultMiddlewareConfig()
		mw.RateLimitDisabled = true
	}
	router := NewRouter(NewHandler(p, db), NewMiddleware(mw))
	return &testServer{handler: router.Setup(), pipeline: p, db: db}
}

func (s *testServer) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	r := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode response: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func TestHealth_BeforeFirstSnapshot(t *testing.T) {
	s := setupTestServer(t, false, false, nil)

	w, env := s.do(t, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var health models.HealthStatus
	decodeData(t, env, &health)
	if health.Status != "starting" || health.Ready {
		t.Errorf("health = %+v, want starting and not ready", health)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/health/ready")
	if w.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != CodeNotReady {
		t.Errorf("ready = %d %+v, want 503 NOT_READY", w.Code, env.Error)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/matrix")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("matrix before refresh = %d, want 503", w.Code)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/health/live")
	if w.Code != http.StatusOK {
		t.Errorf("live = %d, want 200", w.Code)
	}
}

func TestHealth_Ready(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	_, env := s.do(t, http.MethodGet, "/api/v1/health")
	var health models.HealthStatus
	decodeData(t, env, &health)
	if health.Status != "healthy" || !health.Ready || health.SnapshotVersion != 1 {
		t.Errorf("health = %+v", health)
	}
	if health.Categories != 3 || health.Customers != 3 || health.Orders != 4 {
		t.Errorf("health counts = %d/%d/%d, want 3/3/4", health.Categories, health.Customers, health.Orders)
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/health/ready")
	if w.Code != http.StatusOK || env.Metadata.SnapshotVersion != 1 {
		t.Errorf("ready = %d version %d, want 200 version 1", w.Code, env.Metadata.SnapshotVersion)
	}
}

func TestCategoriesAndMatrix(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	_, env := s.do(t, http.MethodGet, "/api/v1/categories")
	var categories []models.Category
	decodeData(t, env, &categories)
	if len(categories) != 3 || categories[0].ID != "books" {
		t.Errorf("categories = %+v", categories)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/matrix")
	var m affinity.CoAffinityMatrix
	decodeData(t, env, &m)
	if len(m.Categories) != 3 || m.Value("books", "books") != 0 {
		t.Errorf("matrix = %+v", m)
	}
	if got, want := m.Value("books", "toys"), s.pipeline.Snapshot().Matrix().Value("books", "toys"); got != want {
		t.Errorf("books/toys = %v, want %v", got, want)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/matrix/stats")
	var stats affinity.MatrixStats
	decodeData(t, env, &stats)
	if stats.TotalOrders != 4 || stats.CategoryOrderCounts["books"] != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRelatedCategories(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
		wantLen    int
	}{
		{name: "default limit", path: "/api/v1/categories/books/related", wantStatus: http.StatusOK, wantLen: 2},
		{name: "limit 1", path: "/api/v1/categories/books/related?limit=1", wantStatus: http.StatusOK, wantLen: 1},
		{name: "limit too small", path: "/api/v1/categories/books/related?limit=0", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "limit too large", path: "/api/v1/categories/books/related?limit=500", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "unknown category", path: "/api/v1/categories/garden/related", wantStatus: http.StatusNotFound, wantCode: CodeUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
				}
				return
			}
			var resp RelatedResponse
			decodeData(t, env, &resp)
			if len(resp.Related) != tt.wantLen {
				t.Errorf("related = %d entries, want %d", len(resp.Related), tt.wantLen)
			}
			for i := 1; i < len(resp.Related); i++ {
				if resp.Related[i].CoAffinity > resp.Related[i-1].CoAffinity {
					t.Errorf("related not sorted: %+v", resp.Related)
				}
			}
		})
	}
}

func TestGoalResults(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	w, env := s.do(t, http.MethodGet, "/api/v1/affinity/toys")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var first GoalResultsResponse
	decodeData(t, env, &first)

	if first.Goal != "toys" || first.ActiveDays != 90 {
		t.Errorf("goal/active days = %s/%d", first.Goal, first.ActiveDays)
	}
	// c1 is scored, c2 already bought toys, c3 has no orders.
	if first.Total != 1 || len(first.Results) != 1 || first.Results[0].CustomerID != "c1" {
		t.Errorf("results = %+v, want only c1", first.Results)
	}
	if first.SkipCounts[affinity.SkipAlreadyPurchased] != 1 || first.SkipCounts[affinity.SkipNoOrders] != 1 {
		t.Errorf("skip counts = %v", first.SkipCounts)
	}

	// Served from the cache for the same snapshot.
	_, env = s.do(t, http.MethodGet, "/api/v1/affinity/toys?limit=1")
	var second GoalResultsResponse
	decodeData(t, env, &second)
	if second.RunID != first.RunID {
		t.Errorf("second request RunID = %s, want cached %s", second.RunID, first.RunID)
	}

	// A refresh publishes a new snapshot version and invalidates the cache.
	if _, err := s.pipeline.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	_, env = s.do(t, http.MethodGet, "/api/v1/affinity/toys")
	var third GoalResultsResponse
	decodeData(t, env, &third)
	if third.RunID == first.RunID || env.Metadata.SnapshotVersion != 2 {
		t.Errorf("after refresh RunID = %s version %d, want a new run on version 2", third.RunID, env.Metadata.SnapshotVersion)
	}
}

func TestGoalResults_Errors(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown goal", path: "/api/v1/affinity/garden", wantStatus: http.StatusNotFound, wantCode: CodeUnknownCategory},
		{name: "min score above 1", path: "/api/v1/affinity/toys?min_score=2", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "malformed min score", path: "/api/v1/affinity/toys?min_score=abc", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "limit too large", path: "/api/v1/affinity/toys?limit=5000", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestGoalResults_MinScoreFiltersEverything(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	_, env := s.do(t, http.MethodGet, "/api/v1/affinity/toys?min_score=1")
	var resp GoalResultsResponse
	decodeData(t, env, &resp)
	if resp.Total != 0 || len(resp.Results) != 0 || resp.HasMore {
		t.Errorf("min_score=1 returned %+v; affinity is always below 1", resp)
	}
}

func TestCustomerAffinity(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantScored bool
		wantReason affinity.SkipReason
	}{
		{name: "scored", path: "/api/v1/affinity/toys/customers/c1", wantStatus: http.StatusOK, wantScored: true},
		{name: "already purchased", path: "/api/v1/affinity/books/customers/c1", wantStatus: http.StatusOK, wantReason: affinity.SkipAlreadyPurchased},
		{name: "no orders", path: "/api/v1/affinity/toys/customers/c3", wantStatus: http.StatusOK, wantReason: affinity.SkipNoOrders},
		{name: "unknown customer", path: "/api/v1/affinity/toys/customers/ghost", wantStatus: http.StatusNotFound},
		{name: "unknown goal", path: "/api/v1/affinity/garden/customers/c1", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp CustomerAffinityResponse
			decodeData(t, env, &resp)
			if resp.Scored != tt.wantScored || resp.SkipReason != tt.wantReason {
				t.Errorf("response = %+v", resp)
			}
			if tt.wantScored && (resp.Result == nil || resp.Result.GoalCategory != "toys") {
				t.Errorf("result = %+v", resp.Result)
			}
		})
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := setupTestServer(t, false, false, nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp RefreshResponse
	decodeData(t, env, &resp)
	if resp.Version != 1 || resp.Categories != 3 || resp.Orders != 4 {
		t.Errorf("refresh = %+v", resp)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/refresh")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh = %d, want 405", w.Code)
	}
}

func TestDatabaseEndpoints(t *testing.T) {
	s := setupTestServer(t, true, true, nil)

	result, err := s.pipeline.RunGoal(context.Background(), "toys")
	if err != nil {
		t.Fatalf("RunGoal() error = %v", err)
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/runs?goal=toys")
	var runs []database.RunSummary
	decodeData(t, env, &runs)
	if len(runs) != 1 || runs[0].ID != result.RunID {
		t.Fatalf("runs = %+v, want run %s", runs, result.RunID)
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/runs/"+result.RunID.String()+"/results")
	if w.Code != http.StatusOK {
		t.Fatalf("run results status = %d: %s", w.Code, w.Body.String())
	}
	var results []affinity.CustomerAffinityResult
	decodeData(t, env, &results)
	if len(results) != len(result.Results) {
		t.Errorf("run results = %d, want %d", len(results), len(result.Results))
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/matrix/pairs")
	var pairs PairsResponse
	decodeData(t, env, &pairs)
	if len(pairs.Pairs) != 3 || pairs.CategoryOrders["books"] != 3 {
		t.Errorf("pairs = %+v", pairs)
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "bad run id", path: "/api/v1/runs/not-a-uuid/results", wantStatus: http.StatusBadRequest},
		{name: "unknown run", path: "/api/v1/runs/00000000-0000-0000-0000-000000000001/results", wantStatus: http.StatusNotFound},
		{name: "bad goal filter", path: "/api/v1/runs?goal=%20%20", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w, _ := s.do(t, http.MethodGet, tt.path); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestDatabaseEndpoints_Disabled(t *testing.T) {
	s := setupTestServer(t, true, false, nil)

	for _, path := range []string{"/api/v1/runs", "/api/v1/matrix/pairs", "/api/v1/runs/00000000-0000-0000-0000-000000000001/results"} {
		if w, _ := s.do(t, http.MethodGet, path); w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404 without a database", path, w.Code)
		}
	}
}
