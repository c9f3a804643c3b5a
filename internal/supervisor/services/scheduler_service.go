// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
)

// Engine is the backup engine lifecycle. *backup.Manager implements it.
type Engine interface {
	// Start rebuilds the timer table from the store and starts firing.
	Start(ctx context.Context) (int, error)
	// Stop cancels all timers and waits for in-progress runs until ctx is done.
	Stop(ctx context.Context) error
}

// SchedulerService owns the engine's timers for the lifetime of Serve.
//
// Lifecycle:
//
//	Serve      -> engine.Start: load jobs, schedule each, start cron
//	ctx done   -> engine.Stop: drop timers, wait for running backups
//	              (bounded by stopTimeout), return ctx.Err()
//
// A failed Start is returned to suture, which backs off and calls Serve
// again. Each restart reloads every job from the store, so the timer table
// after a restart matches what is persisted.
type SchedulerService struct {
	engine      Engine
	stopTimeout time.Duration
}

// NewSchedulerService wraps engine. stopTimeout bounds the wait for running
// backups on shutdown; a non-positive value means 30s.
func NewSchedulerService(engine Engine, stopTimeout time.Duration) *SchedulerService {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &SchedulerService{engine: engine, stopTimeout: stopTimeout}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	scheduled, err := s.engine.Start(ctx)
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	logging.Info().Int("scheduled", scheduled).Msg("Scheduler service running")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()
	if err := s.engine.Stop(stopCtx); err != nil {
		logging.Warn().Err(err).Msg("Scheduler did not stop cleanly")
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log events.
func (s *SchedulerService) String() string {
	return "scheduler"
}
