// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tomtom215/affinity/internal/affinity"
)

// Output file names.
const (
	MatrixFile      = "coaffinity_matrix.json"
	MatrixStatsFile = "matrix_stats.json"
)

// csvHeader is the column layout of affinity_<goal>.csv.
var csvHeader = []string{
	"customer_id",
	"goal_category",
	"affinity",
	"max_weighted_signal",
	"seed_count",
	"top_seed_category",
}

// BatchFileName returns the JSON result file name for goal.
func BatchFileName(goal string) string {
	return "affinity_" + goal + ".json"
}

// CSVFileName returns the CSV result file name for goal.
func CSVFileName(goal string) string {
	return "affinity_" + goal + ".csv"
}

// WriteMatrix writes the CoAffinity matrix to dir/coaffinity_matrix.json.
func WriteMatrix(dir string, m *affinity.CoAffinityMatrix) (string, error) {
	path := filepath.Join(dir, MatrixFile)
	if err := writeJSON(path, m); err != nil {
		return "", err
	}
	return path, nil
}

// ReadMatrix loads a matrix written by WriteMatrix.
func ReadMatrix(path string) (*affinity.CoAffinityMatrix, error) {
	var m affinity.CoAffinityMatrix
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteMatrixStats writes normalization bounds and counts to dir/matrix_stats.json.
//
//nolint:gocritic // hugeParam: stats passed by value for immutability
func WriteMatrixStats(dir string, stats affinity.MatrixStats) (string, error) {
	path := filepath.Join(dir, MatrixStatsFile)
	if err := writeJSON(path, stats); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBatch writes a goal run to dir/affinity_<goal>.json.
func WriteBatch(dir string, result *affinity.BatchResult) (string, error) {
	path := filepath.Join(dir, BatchFileName(result.Goal))
	if err := writeJSON(path, result); err != nil {
		return "", err
	}
	return path, nil
}

// WriteResultsCSV writes one row per scored customer to dir/affinity_<goal>.csv.
func WriteResultsCSV(dir string, result *affinity.BatchResult) (string, error) {
	path := filepath.Join(dir, CSVFileName(result.Goal))

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}
	file, err := os.Create(path) //nolint:gosec // path is built from configured output dir
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for i := range result.Results {
		if err := writer.Write(csvRow(&result.Results[i])); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}

func csvRow(r *affinity.CustomerAffinityResult) []string {
	return []string{
		r.CustomerID,
		r.GoalCategory,
		strconv.FormatFloat(r.Affinity, 'f', 6, 64),
		strconv.FormatFloat(r.MaxWeightedSignal, 'f', 6, 64),
		strconv.Itoa(len(r.SeedWeights)),
		topSeedCategory(r),
	}
}

// topSeedCategory returns the category that produced the raw signal.
// Ties go to the first in signal order.
func topSeedCategory(r *affinity.CustomerAffinityResult) string {
	top := ""
	best := 0.0
	for _, s := range r.WeightedSignals {
		if s.WeightedSignal > best {
			best = s.WeightedSignal
			top = s.CategoryID
		}
	}
	return top
}
