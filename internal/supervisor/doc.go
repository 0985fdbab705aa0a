// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package supervisor runs the long-lived parts of the affinity server under a
suture v4 supervisor tree.

	RootSupervisor ("affinity")
	├── DataSupervisor ("data-layer")
	│   └── RefreshService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures independently, so a refresh that keeps failing
backs off without taking the HTTP server down. Readers always see the last
snapshot that built successfully.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewRefreshService(refresh, refreshCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, timeout, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Configuration

Zero TreeConfig fields take suture's defaults: 5 failures before backoff,
30 second decay, 15 second backoff and a 10 second shutdown timeout.

# Logging

Supervisor events (start, stop, panic, backoff) are written through
sutureslog to a zerolog-backed slog.Logger.

# Not Supervised

DuckDB is an embedded library opened once by the command; it has no Serve
loop of its own.
*/
package supervisor
