// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed by the HTTP API at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Pipeline Metrics:
  - affinity_matrix_build_duration_seconds: matrix build time (histogram)
  - affinity_matrix_categories: categories in the current matrix (gauge)
  - affinity_dataset_orders: orders in the current dataset (gauge)
  - affinity_refresh_total / affinity_refresh_errors_total: snapshot refreshes (counters)
  - affinity_refresh_last_success_timestamp: Unix time of the last good refresh (gauge)

Scoring Metrics:
  - affinity_customers_scored_total: scored customers (counter), label goal
  - affinity_customers_skipped_total: skipped customers (counter), labels goal, reason
  - affinity_score: final affinity values (histogram), label goal
  - affinity_batch_duration_seconds: batch wall time (histogram), label goal
  - affinity_batch_mean_score: mean affinity of the latest batch (gauge), label goal

Database Metrics:
  - duckdb_query_duration_seconds: query time (histogram), labels operation, table
  - duckdb_query_errors_total: failed queries (counter), labels operation, table, error_type

API Metrics:
  - api_requests_total: requests (counter), labels method, endpoint, status_code
  - api_request_duration_seconds: latency (histogram), labels method, endpoint
  - api_active_requests: in-flight requests (gauge)
  - api_rate_limit_hits_total: rate limited requests (counter), label endpoint

# Scoring Observer

PipelineObserver implements affinity.Observer so the batch orchestrator
reports per-customer outcomes without importing this package:

	orch, err := affinity.NewOrchestrator(cfg, logger,
	    affinity.WithObserver(metrics.PipelineObserver{}))
*/
package metrics
