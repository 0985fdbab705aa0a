// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package api provides the read-mostly HTTP API over the current affinity
snapshot.

Endpoints:

	GET  /api/v1/health                                   snapshot and uptime summary
	GET  /api/v1/health/live                              liveness check
	GET  /api/v1/health/ready                             503 until the first snapshot is built
	GET  /api/v1/categories                               categories of the snapshot
	GET  /api/v1/categories/{id}/related?limit=           strongest co-affinity partners
	GET  /api/v1/matrix                                   full CoAffinity matrix
	GET  /api/v1/matrix/stats                             normalization bounds and order counts
	GET  /api/v1/matrix/pairs                             co-ordered category pairs (DuckDB)
	GET  /api/v1/affinity/{goal}?min_score=&limit=&offset= scored customers for a goal
	GET  /api/v1/affinity/{goal}/customers/{customerID}   one customer's score or skip reason
	GET  /api/v1/runs?goal=&limit=                        persisted runs (DuckDB)
	GET  /api/v1/runs/{runID}/results?min_score=          results of a persisted run (DuckDB)
	POST /api/v1/refresh                                  rebuild the snapshot now
	GET  /metrics                                         Prometheus metrics

Every JSON response uses the models.APIResponse envelope. Goal results are
computed on demand and cached per snapshot version, so a refresh invalidates
them implicitly.

The middleware stack is request ID with logging context, panic recovery,
CORS (go-chi/cors), per-IP rate limiting (go-chi/httprate), security headers
and Prometheus request metrics.
*/
package api
