// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
manager.go - Backup Job Manager

The Manager is the facade the HTTP layer talks to. It ties the job store, the
trigger scheduler, the remote client and the restore orchestrator together.

Manager Responsibilities:
  - Job CRUD with schedule translation and pre-flight validation
  - Keeping the active timer table in step with the store
  - Manual runs, archive listings and restores
  - Settings persistence, split between the store and the rclone config file

Startup:
Start loads every stored job and schedules the enabled ones. A job whose
schedule cannot be registered is logged and skipped; it stays in the store.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/restore"
	"github.com/tomtom215/labelkeeper/internal/store"
)

// JobScheduler owns the active timer table. *scheduler.Scheduler satisfies it.
type JobScheduler interface {
	Schedule(job *models.Job) error
	Unschedule(id string)
	RunNow(ctx context.Context, job *models.Job) (*models.RunRecord, error)
	Runs(jobID string) []models.RunRecord
	RefreshSettings(settings *models.Settings)
	Len() int
	Start()
	Stop(ctx context.Context) error
	Running() bool
}

// LocalLister lists archives in the backup directory. *archive.Rotator satisfies it.
type LocalLister interface {
	List(label string) ([]string, error)
}

// RemoteLister lists archives on a remote. *remote.Client satisfies it.
type RemoteLister interface {
	List(ctx context.Context, remoteName, label string, recursive bool) ([]string, error)
}

// Restorer runs restore requests. *restore.Orchestrator satisfies it.
type Restorer interface {
	Restore(ctx context.Context, req restore.Request) (*restore.Result, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Store        store.Store
	Scheduler    JobScheduler
	Local        LocalLister
	Remote       RemoteLister
	Restorer     Restorer
	RemoteConfig store.RemoteConfigFile
}

// Manager handles job, archive, restore and settings operations.
type Manager struct {
	store        store.Store
	scheduler    JobScheduler
	local        LocalLister
	remote       RemoteLister
	restorer     Restorer
	remoteConfig store.RemoteConfigFile
	now          func() time.Time

	// Serialises job mutations so the store and the timer table change together.
	jobsMu sync.Mutex
}

// NewManager creates a Manager.
func NewManager(d Deps) (*Manager, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if d.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	return &Manager{
		store:        d.Store,
		scheduler:    d.Scheduler,
		local:        d.Local,
		remote:       d.Remote,
		restorer:     d.Restorer,
		remoteConfig: d.RemoteConfig,
		now:          time.Now,
	}, nil
}

// Start rebuilds the timer table from the store and starts the scheduler.
// It returns the number of jobs scheduled.
func (m *Manager) Start(ctx context.Context) (int, error) {
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load jobs: %w", err)
	}

	if settings, err := m.GetSettings(ctx); err == nil {
		m.scheduler.RefreshSettings(settings)
	} else {
		logging.Warn().Err(err).Msg("Failed to load settings at startup")
	}

	scheduled := 0
	for _, job := range jobs {
		if !job.Enabled {
			continue
		}
		if err := m.scheduler.Schedule(job); err != nil {
			logging.Error().Err(err).Str("job_id", job.ID).Str("label", job.Label).
				Msg("Failed to schedule stored job")
			continue
		}
		scheduled++
	}

	m.scheduler.Start()
	logging.Info().Int("jobs", len(jobs)).Int("scheduled", scheduled).Msg("Backup jobs loaded")
	return scheduled, nil
}

// Stop stops the scheduler, waiting for running timer callbacks until ctx is done.
func (m *Manager) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// ScheduledJobs is the number of active timer entries.
func (m *Manager) ScheduledJobs() int {
	return m.scheduler.Len()
}

// SchedulerRunning reports whether the scheduler is started.
func (m *Manager) SchedulerRunning() bool {
	return m.scheduler.Running()
}

// StoreBackend names the persistence backend.
func (m *Manager) StoreBackend() string {
	return string(m.store.Backend())
}
