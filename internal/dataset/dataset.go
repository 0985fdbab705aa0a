// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package dataset reads commerce datasets from disk and writes pipeline
// outputs next to them.
//
// A dataset directory holds three JSON arrays:
//
//	categories.json  []models.Category (order defines matrix indices)
//	customers.json   []models.Customer
//	orders.json      []models.Order
//
// Outputs are written to a separate directory:
//
//	coaffinity_matrix.json  affinity.CoAffinityMatrix
//	matrix_stats.json       affinity.MatrixStats
//	affinity_<goal>.json    affinity.BatchResult
//	affinity_<goal>.csv     one row per scored customer
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/validation"
)

// Input file names.
const (
	CategoriesFile = "categories.json"
	CustomersFile  = "customers.json"
	OrdersFile     = "orders.json"
)

// Dataset is the full set of records the pipeline consumes.
type Dataset struct {
	Categories []models.Category `json:"categories" validate:"dive"`
	Customers  []models.Customer `json:"customers" validate:"dive"`
	Orders     []models.Order    `json:"orders" validate:"dive"`
}

// LoadDir reads categories.json, customers.json and orders.json from dir.
func LoadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}

	files := []struct {
		name string
		dst  interface{}
	}{
		{CategoriesFile, &ds.Categories},
		{CustomersFile, &ds.Customers},
		{OrdersFile, &ds.Orders},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(dir, f.name), f.dst); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// SaveDir writes the dataset as the three input files.
func (d *Dataset) SaveDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, CategoriesFile), d.Categories); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, CustomersFile), d.Customers); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, OrdersFile), d.Orders)
}

// Validate checks every record and the references between them. All
// problems are reported, joined into one error.
func (d *Dataset) Validate() error {
	var problems []error

	if verr := validation.ValidateStruct(d); verr != nil {
		for _, fe := range verr.Errors() {
			problems = append(problems, errors.New(fe.Error()))
		}
	}

	problems = append(problems, duplicateIDs("categories", len(d.Categories), func(i int) string { return d.Categories[i].ID })...)
	problems = append(problems, duplicateIDs("customers", len(d.Customers), func(i int) string { return d.Customers[i].ID })...)
	problems = append(problems, duplicateIDs("orders", len(d.Orders), func(i int) string { return d.Orders[i].ID })...)

	customers := make(map[string]struct{}, len(d.Customers))
	for i := range d.Customers {
		customers[d.Customers[i].ID] = struct{}{}
	}
	for i := range d.Orders {
		if d.Orders[i].CustomerID == "" {
			continue
		}
		if _, ok := customers[d.Orders[i].CustomerID]; !ok {
			problems = append(problems, fmt.Errorf("orders[%d].customer_id %q is not a known customer", i, d.Orders[i].CustomerID))
		}
	}

	return errors.Join(problems...)
}

func duplicateIDs(kind string, n int, id func(int) string) []error {
	var problems []error
	seen := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key := id(i)
		if key == "" {
			continue
		}
		if first, ok := seen[key]; ok {
			problems = append(problems, fmt.Errorf("%s[%d].id %q duplicates %s[%d]", kind, i, key, kind, first))
			continue
		}
		seen[key] = i
	}
	return problems
}

// RecomputeTotals sets every order total to the sum of its line totals.
func (d *Dataset) RecomputeTotals() {
	for i := range d.Orders {
		d.Orders[i].Total = d.Orders[i].ComputeTotal()
	}
}

// UnknownCategoryItems counts order items whose category is not in the
// category list. Such items are ignored by the matrix build.
func (d *Dataset) UnknownCategoryItems() int {
	known := make(map[string]struct{}, len(d.Categories))
	for i := range d.Categories {
		known[d.Categories[i].ID] = struct{}{}
	}

	unknown := 0
	for i := range d.Orders {
		for _, item := range d.Orders[i].Items {
			if _, ok := known[item.CategoryID]; !ok {
				unknown++
			}
		}
	}
	return unknown
}

// ResetDir removes dir and everything in it, then recreates it empty.
func ResetDir(dir string) error {
	if dir == "" || dir == "/" || dir == "." {
		return fmt.Errorf("refusing to reset %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configured data dir
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON writes v to a temporary file and renames it into place so
// readers never observe a partial file.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
