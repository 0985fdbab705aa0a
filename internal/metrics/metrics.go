// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/affinity/internal/affinity"
)

var (
	// Pipeline Metrics
	MatrixBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_matrix_build_duration_seconds",
			Help:    "Duration of co-affinity matrix builds in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	MatrixCategories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_matrix_categories",
			Help: "Number of categories in the current co-affinity matrix",
		},
	)

	DatasetOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_dataset_orders",
			Help: "Number of orders in the current dataset",
		},
	)

	RefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_refresh_total",
			Help: "Total number of snapshot refreshes",
		},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_refresh_errors_total",
			Help: "Total number of failed snapshot refreshes",
		},
		[]string{"error_type"}, // "load", "validation", "matrix", "database", "other"
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_refresh_last_success_timestamp",
			Help: "Unix timestamp of last successful snapshot refresh",
		},
	)

	// Scoring Metrics
	CustomersScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_customers_scored_total",
			Help: "Total number of customers scored",
		},
		[]string{"goal"},
	)

	CustomersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_customers_skipped_total",
			Help: "Total number of customers skipped during scoring",
		},
		[]string{"goal", "reason"},
	)

	AffinityScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_score",
			Help:    "Distribution of final customer affinity values",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"goal"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_batch_duration_seconds",
			Help:    "Duration of goal scoring batches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"goal"},
	)

	BatchMeanScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "affinity_batch_mean_score",
			Help: "Mean affinity of the most recent batch per goal",
		},
		[]string{"goal"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMatrixBuild records a matrix build and the size of its inputs.
func RecordMatrixBuild(duration time.Duration, categories, orders int) {
	MatrixBuildDuration.Observe(duration.Seconds())
	MatrixCategories.Set(float64(categories))
	DatasetOrders.Set(float64(orders))
}

// RecordRefresh records a snapshot refresh.
func RecordRefresh(err error) {
	RefreshTotal.Inc()
	if err != nil {
		RefreshErrors.WithLabelValues(refreshErrorType(err)).Inc()
		return
	}
	RefreshLastSuccess.Set(float64(time.Now().Unix()))
}

// refreshErrorType buckets refresh failures by the stage prefix that the
// pipeline puts on its wrapped errors.
func refreshErrorType(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "load"):
		return "load"
	case strings.HasPrefix(msg, "validate"):
		return "validation"
	case strings.HasPrefix(msg, "build matrix"):
		return "matrix"
	case strings.Contains(msg, "database"), strings.Contains(msg, "duckdb"):
		return "database"
	default:
		return "other"
	}
}

// PipelineObserver reports orchestrator events to Prometheus.
type PipelineObserver struct{}

var _ affinity.Observer = PipelineObserver{}

// CustomerScored implements affinity.Observer.
func (PipelineObserver) CustomerScored(goal string, score float64) {
	CustomersScored.WithLabelValues(goal).Inc()
	AffinityScore.WithLabelValues(goal).Observe(score)
}

// CustomerSkipped implements affinity.Observer.
func (PipelineObserver) CustomerSkipped(goal, reason string) {
	CustomersSkipped.WithLabelValues(goal, reason).Inc()
}

// BatchCompleted implements affinity.Observer.
func (PipelineObserver) BatchCompleted(goal string, stats affinity.AffinityStats, duration time.Duration) {
	BatchDuration.WithLabelValues(goal).Observe(duration.Seconds())
	BatchMeanScore.WithLabelValues(goal).Set(stats.Mean)
}
