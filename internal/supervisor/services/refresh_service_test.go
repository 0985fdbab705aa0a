// Affinity - Category Co-Affinity and Customer Propensity Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*RefreshService)(nil)

// syncBuffer guards a bytes.Buffer written by the service goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewRefreshService_Defaults(t *testing.T) {
	svc := NewRefreshService(func(context.Context) error { return nil }, RefreshServiceConfig{}, zerolog.Nop())
	if svc.config.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", svc.config.Timeout)
	}
	if svc.String() != "refresh-service" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestRefreshService_Serve(t *testing.T) {
	tests := []struct {
		name      string
		config    RefreshServiceConfig
		wait      time.Duration
		wantMin   int32
		wantMax   int32
		refreshOK bool
	}{
		{
			name:    "startup only",
			config:  RefreshServiceConfig{RefreshOnStartup: true},
			wait:    50 * time.Millisecond,
			wantMin: 1,
			wantMax: 1,
		},
		{
			name:    "no startup no interval",
			config:  RefreshServiceConfig{},
			wait:    50 * time.Millisecond,
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:    "scheduled",
			config:  RefreshServiceConfig{Interval: 10 * time.Millisecond},
			wait:    100 * time.Millisecond,
			wantMin: 2,
			wantMax: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			svc := NewRefreshService(func(context.Context) error {
				calls.Add(1)
				return nil
			}, tt.config, zerolog.Nop())

			ctx, cancel := context.WithTimeout(context.Background(), tt.wait)
			defer cancel()

			err := svc.Serve(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}

			got := calls.Load()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("refresh calls = %d, want between %d and %d", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestRefreshService_FailureKeepsRunning(t *testing.T) {
	var calls atomic.Int32
	buf := &syncBuffer{}
	svc := NewRefreshService(func(context.Context) error {
		calls.Add(1)
		return errors.New("load dataset: boom")
	}, RefreshServiceConfig{RefreshOnStartup: true, Interval: 10 * time.Millisecond}, zerolog.New(buf))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if calls.Load() < 2 {
		t.Errorf("refresh calls = %d, want retries after failure", calls.Load())
	}
	if !strings.Contains(buf.String(), "refresh failed") {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}

func TestRefreshService_Timeout(t *testing.T) {
	deadlineSeen := make(chan bool, 1)
	svc := NewRefreshService(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadlineSeen <- ok
		<-ctx.Done()
		return ctx.Err()
	}, RefreshServiceConfig{RefreshOnStartup: true, Timeout: 20 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go func() { _ = svc.Serve(ctx) }()

	select {
	case ok := <-deadlineSeen:
		if !ok {
			t.Error("refresh context has no deadline")
		}
	case <-time.After(time.Second):
		t.Fatal("refresh was not called")
	}
}
