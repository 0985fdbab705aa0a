// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package models defines the shared data types for the affinity service.

# Commerce Types

Input records loaded from JSON files or DuckDB:
  - Category: product category with a base weight
  - Customer: customer identity
  - Order: a customer's order with its line items
  - OrderItem: one line of an order, priced with shopspring/decimal

Order totals are recomputed from line items; a stored total is never trusted.

# API Types

The HTTP envelope shared by every endpoint:
  - APIResponse: status, data, metadata and error
  - Metadata: timestamp, query time and snapshot version
  - APIError: machine-readable code with optional details
  - HealthStatus: readiness and dataset counts

Example success envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2025-06-01T00:00:00Z", "snapshot_version": 3}
	}

# JSON Serialization

All types use snake_case JSON tags and are encoded with goccy/go-json by the
api and dataset packages.
*/
package models
