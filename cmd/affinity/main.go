// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package main is the entry point for the affinity command.
//
// affinity builds a category co-affinity matrix from order history and
// scores every eligible customer's propensity to buy from a goal category.
//
// # Commands
//
//	affinity           run the batch, then serve if server.enabled
//	affinity run       build the matrix and score every goal, then exit
//	affinity serve     serve the HTTP API, refreshing on a schedule
//
// # Configuration
//
// Configuration is loaded via koanf with layered sources (highest priority
// wins):
//   - Environment variables (DATA_DIR, AFFINITY_GOALS, HTTP_PORT, ...)
//   - Config file (--config, CONFIG_PATH, or config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. A running batch stops at the
// next goal; the server drains in-flight requests before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "affinity",
	Short: "Category co-affinity and customer propensity scoring",
	Long: `affinity builds a co-affinity matrix between product categories from
order history, then scores each active customer's affinity for a goal
category. Results are written as JSON and CSV, stored in DuckDB when enabled,
and served over HTTP when server.enabled is set.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.runBatch(ctx); err != nil {
				return err
			}
			if !a.cfg.Server.Enabled {
				return nil
			}
			return a.serve(ctx)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the matrix and score every goal category",
	Long: `Load the dataset, build the co-affinity matrix and score every
configured goal (all categories when none are configured). Outputs go to
output.dir and, when enabled, to DuckDB.

Examples:
  affinity run
  affinity run --config /etc/affinity/config.yaml
  AFFINITY_GOALS=toys,books affinity run`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return a.runBatch(ctx)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the affinity HTTP API",
	Long: `Start the supervised HTTP API. The snapshot is built on startup and
rebuilt every server.refresh_interval; a failed rebuild keeps the previous
snapshot serving.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return a.serve(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: CONFIG_PATH or ./config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

// withApp builds the app, runs fn and closes the app.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
