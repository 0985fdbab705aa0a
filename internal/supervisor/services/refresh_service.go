// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshFunc rebuilds the affinity snapshot, and optionally reruns goals.
type RefreshFunc func(ctx context.Context) error

// RefreshServiceConfig controls when refreshes happen.
type RefreshServiceConfig struct {
	// RefreshOnStartup refreshes as soon as the service starts.
	RefreshOnStartup bool

	// Interval between scheduled refreshes. Zero disables them.
	Interval time.Duration

	// Timeout bounds a single refresh. Default: 30m.
	Timeout time.Duration
}

// RefreshService rebuilds the snapshot on startup and on a schedule.
// A failed refresh is logged and retried at the next tick; the previous
// snapshot keeps serving.
type RefreshService struct {
	refresh RefreshFunc
	config  RefreshServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewRefreshService creates a refresh service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(refresh RefreshFunc, cfg RefreshServiceConfig, logger zerolog.Logger) *RefreshService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &RefreshService{
		refresh: refresh,
		config:  cfg,
		logger:  logger.With().Str("service", "refresh").Logger(),
		name:    "refresh-service",
	}
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("refresh_on_startup", s.config.RefreshOnStartup).
		Dur("interval", s.config.Interval).
		Msg("refresh service starting")

	if s.config.RefreshOnStartup {
		s.run(ctx, "startup")
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		s.logger.Info().Msg("refresh service shutting down")
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("refresh service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.run(ctx, "scheduled")
		}
	}
}

func (s *RefreshService) run(ctx context.Context, trigger string) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresh(runCtx); err != nil {
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("refresh failed, keeping previous snapshot")
		return
	}
	s.logger.Info().Str("trigger", trigger).Dur("duration", time.Since(start)).Msg("refresh complete")
}

// String implements fmt.Stringer; suture uses it in log events.
func (s *RefreshService) String() string {
	return s.name
}
