// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/affinity/internal/dataset"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/models"
)

// SaveDataset replaces the stored dataset with ds in a single transaction.
// Prices and totals are stored with two decimal places.
func (db *DB) SaveDataset(ctx context.Context, ds *dataset.Dataset) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("REPLACE", "dataset", start, err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	for _, table := range []string{"order_items", "orders", "customers", "categories"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err = insertCategories(ctx, tx, ds.Categories); err != nil {
		return err
	}
	if err = insertCustomers(ctx, tx, ds.Customers); err != nil {
		return err
	}
	if err = insertOrders(ctx, tx, ds.Orders); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Debug().
		Int("categories", len(ds.Categories)).
		Int("customers", len(ds.Customers)).
		Int("orders", len(ds.Orders)).
		Msg("Dataset stored")
	return nil
}

func insertCategories(ctx context.Context, tx *sql.Tx, categories []models.Category) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (id, position, name, base_weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare category insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range categories {
		c := &categories[i]
		if _, err := stmt.ExecContext(ctx, c.ID, i, c.Name, c.BaseWeight); err != nil {
			return fmt.Errorf("failed to insert category %s: %w", c.ID, err)
		}
	}
	return nil
}

func insertCustomers(ctx context.Context, tx *sql.Tx, customers []models.Customer) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO customers (id, position, name, email, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare customer insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range customers {
		c := &customers[i]
		createdAt := sql.NullTime{Time: c.CreatedAt, Valid: !c.CreatedAt.IsZero()}
		if _, err := stmt.ExecContext(ctx, c.ID, i, c.Name, c.Email, createdAt); err != nil {
			return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
		}
	}
	return nil
}

func insertOrders(ctx context.Context, tx *sql.Tx, orders []models.Order) error {
	orderStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders (id, position, customer_id, created_at, total)
		 VALUES (?, ?, ?, ?, CAST(? AS DECIMAL(18,2)))`)
	if err != nil {
		return fmt.Errorf("failed to prepare order insert: %w", err)
	}
	defer closeWithLog(orderStmt, "prepared statement")

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO order_items (order_id, line_no, category_id, quantity, price)
		 VALUES (?, ?, ?, ?, CAST(? AS DECIMAL(18,2)))`)
	if err != nil {
		return fmt.Errorf("failed to prepare order item insert: %w", err)
	}
	defer closeWithLog(itemStmt, "prepared statement")

	for i := range orders {
		o := &orders[i]
		if _, err := orderStmt.ExecContext(ctx, o.ID, i, o.CustomerID, o.CreatedAt.UTC(), o.Total.String()); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
		for line, item := range o.Items {
			if _, err := itemStmt.ExecContext(ctx, o.ID, line, item.CategoryID, item.Quantity, item.Price.String()); err != nil {
				return fmt.Errorf("failed to insert item %d of order %s: %w", line, o.ID, err)
			}
		}
	}
	return nil
}

// LoadDataset reads the stored dataset in its original order.
func (db *DB) LoadDataset(ctx context.Context) (ds *dataset.Dataset, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { observe("SELECT", "dataset", start, err) }()

	ds = &dataset.Dataset{}
	if ds.Categories, err = db.loadCategories(ctx); err != nil {
		return nil, err
	}
	if ds.Customers, err = db.loadCustomers(ctx); err != nil {
		return nil, err
	}
	if ds.Orders, err = db.loadOrders(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

func (db *DB) loadCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, base_weight FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer closeWithLog(rows, "rows")

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.BaseWeight); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (db *DB) loadCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM customers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer closeWithLog(rows, "rows")

	customers := make([]models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		var createdAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time.UTC()
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (db *DB) loadOrders(ctx context.Context) ([]models.Order, error) {
	items, err := db.loadOrderItems(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, customer_id, created_at, CAST(total AS VARCHAR) FROM orders ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer closeWithLog(rows, "rows")

	orders := make([]models.Order, 0)
	for rows.Next() {
		var o models.Order
		var total string
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.CreatedAt, &total); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.CreatedAt = o.CreatedAt.UTC()
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("order %s total %q: %w", o.ID, total, err)
		}
		o.Items = items[o.ID]
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (db *DB) loadOrderItems(ctx context.Context) (map[string][]models.OrderItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT order_id, category_id, quantity, CAST(price AS VARCHAR)
		 FROM order_items ORDER BY order_id, line_no`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items := make(map[string][]models.OrderItem)
	for rows.Next() {
		var orderID, price string
		var item models.OrderItem
		if err := rows.Scan(&orderID, &item.CategoryID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %s price %q: %w", orderID, price, err)
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

// DatasetCounts returns the number of stored categories, customers and orders.
func (db *DB) DatasetCounts(ctx context.Context) (categories, customers, orders int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM customers),
		(SELECT COUNT(*) FROM orders)`).Scan(&categories, &customers, &orders)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count dataset: %w", err)
	}
	return categories, customers, orders, nil
}
