// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/database"
	"github.com/tomtom215/affinity/internal/dataset"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/pipeline"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	db       *database.DB
	pipeline *pipeline.Pipeline
	logger   zerolog.Logger
}

// newApp loads configuration, initializes logging and builds the pipeline.
// The caller must call close.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.WithComponent("affinity")

	a := &app{cfg: cfg, logger: logger}

	if cfg.Database.Enabled {
		a.db, err = database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logger.Info().Str("path", a.db.Path()).Msg("database opened")
	}

	source, err := pipeline.NewSource(cfg, a.db)
	if err != nil {
		a.close()
		return nil, err
	}

	a.pipeline, err = pipeline.New(cfg, source, a.db, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	logger.Info().
		Str("source", source.Name()).
		Str("output_dir", cfg.Output.Dir).
		Bool("database", cfg.Database.Enabled).
		Bool("server", cfg.Server.Enabled).
		Msg("configuration loaded")

	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error().Err(err).Msg("error closing database")
	}
}

// runBatch builds the matrix and scores every configured goal, writing
// results to the output directory (and DuckDB when enabled).
func (a *app) runBatch(ctx context.Context) error {
	if a.cfg.Output.Reset && a.cfg.Output.Dir != "" {
		if err := dataset.ResetDir(a.cfg.Output.Dir); err != nil {
			return fmt.Errorf("reset output: %w", err)
		}
		a.logger.Info().Str("dir", a.cfg.Output.Dir).Msg("output directory reset")
	}

	snap, err := a.pipeline.Refresh(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := a.pipeline.RunAll(ctx)
	for _, r := range results {
		a.logger.Info().
			Str("goal", r.Goal).
			Int("scored", len(r.Results)).
			Int("skipped", len(r.Skipped)).
			Msg("goal complete")
	}
	if err != nil {
		return err
	}

	a.logger.Info().
		Int64("snapshot_version", snap.Version).
		Int("goals", len(results)).
		Dur("duration", time.Since(start)).
		Msg("batch complete")
	return nil
}

// serve runs the supervisor tree until ctx is cancelled. The refresh
// service rebuilds the snapshot on its interval; it also refreshes on
// startup when no snapshot exists yet.
func (a *app) serve(ctx context.Context) error {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	refresh := func(ctx context.Context) error {
		_, err := a.pipeline.Refresh(ctx)
		return err
	}
	tree.AddDataService(services.NewRefreshService(refresh, services.RefreshServiceConfig{
		RefreshOnStartup: !a.pipeline.Ready(),
		Interval:         a.cfg.Server.RefreshInterval,
	}, a.logger))

	server := a.httpServer()
	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.Timeout, a.logger))

	a.logger.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			a.logger.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}
	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *app) httpServer() *http.Server {
	mw := api.DefaultMiddlewareConfig()
	mw.CORSAllowedOrigins = a.cfg.Server.CORSOrigins
	mw.RateLimitRequests = a.cfg.Server.RateLimitReqs
	mw.RateLimitWindow = a.cfg.Server.RateLimitWindow

	router := api.NewRouter(api.NewHandler(a.pipeline, a.db), api.NewMiddleware(mw))

	return &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.Timeout,
		WriteTimeout:      a.cfg.Server.Timeout,
		IdleTimeout:       2 * a.cfg.Server.Timeout,
	}
}
