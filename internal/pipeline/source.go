// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package pipeline

import (
	"context"
	"fmt"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/dataset"
)

// Source supplies the dataset a snapshot is built from.
type Source interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
	Name() string
}

// FileSource reads categories.json, customers.json and orders.json from Dir.
type FileSource struct {
	Dir string
}

// Load implements Source.
func (s FileSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.LoadDir(s.Dir)
}

// Name implements Source.
func (s FileSource) Name() string {
	return config.SourceFiles + ":" + s.Dir
}

// DBSource reads the dataset stored in DuckDB.
type DBSource struct {
	DB *database.DB
}

// Load implements Source.
func (s DBSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	return s.DB.LoadDataset(ctx)
}

// Name implements Source.
func (s DBSource) Name() string {
	return config.SourceDuckDB + ":" + s.DB.Path()
}

// NewSource returns the source selected by cfg.Data.Source. db may be nil
// unless the source is duckdb.
func NewSource(cfg *config.Config, db *database.DB) (Source, error) {
	switch cfg.Data.Source {
	case config.SourceFiles:
		return FileSource{Dir: cfg.Data.Dir}, nil
	case config.SourceDuckDB:
		if db == nil {
			return nil, fmt.Errorf("data.source=%s requires an open database", config.SourceDuckDB)
		}
		return DBSource{DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}
