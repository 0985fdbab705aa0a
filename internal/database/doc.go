// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package database stores datasets, CoAffinity matrices and scoring runs in
// DuckDB.
//
// # Architecture
//
//   - database.go: connection lifecycle, pool configuration, checkpoints
//   - database_schema.go: table and index creation
//   - crud_dataset.go: SaveDataset / LoadDataset for categories, customers, orders
//   - crud_matrix.go: SaveMatrix / LoadMatrix for matrix builds and cells
//   - crud_runs.go: SaveBatch / RecentRuns / RunResults for goal runs
//   - analytics_cooccurrence.go: category pair counts computed in SQL
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.SaveDataset(ctx, ds); err != nil {
//	    return err
//	}
//
// Every query records its duration and failures through the metrics package
// (duckdb_query_duration_seconds, duckdb_query_errors_total). Methods accept
// a context; one without a deadline gets a 30 second timeout.
package database
