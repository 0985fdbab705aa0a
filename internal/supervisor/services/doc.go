// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package services provides suture.Service wrappers for long-running
components.

Each wrapper implements

	type Service interface {
	    Serve(ctx context.Context) error
	}

and returns the context error after a graceful stop, so suture does not
restart it. Any other error is treated as a failure and restarted with
backoff.

# Available Services

HTTPServerService:
  - Runs *http.Server.ListenAndServe in a goroutine
  - Calls Shutdown with a bounded timeout when the context is cancelled

RefreshService:
  - Rebuilds the affinity snapshot on startup and every interval
  - Logs failures and keeps the previous snapshot serving
*/
package services
