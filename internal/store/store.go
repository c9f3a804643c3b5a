// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package store persists job definitions and global settings.
//
// Writes are last-write-wins on the full record. The badger backend makes
// each individual write atomic; the memory backend is for tests and for
// deployments that rebuild jobs on every start.
//
// Backends:
//
//	badger  - BadgerStore, one key per job ("job:<id>") plus "settings:global"
//	memory  - MemoryStore, cloned records behind a RWMutex
//
// Records are stored as JSON. Settings.RemoteConfig is not part of the
// record: the rclone credential text lives in RemoteConfigFile so the
// backup executable and rclone read the same file the API wrote.
//
// Errors:
//   - ErrNotFound for a missing job id
//   - ErrExists for CreateJob with a duplicate id
//   - *Error (matching ErrStore) for any backend failure
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/labelkeeper/internal/models"
)

var (
	// ErrNotFound is returned when a job id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStore is matched by every *Error.
	ErrStore = errors.New("store failure")

	// ErrExists is returned by CreateJob for a duplicate id.
	ErrExists = errors.New("already exists")
)

// Error is a persistence failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStore }

// wrap leaves sentinel results alone and tags everything else as a store failure.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Backend names a storage implementation.
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
)

// JobStore persists jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, id string) error
}

// SettingsStore persists the global settings record.
type SettingsStore interface {
	// GetSettings returns the stored settings, or empty settings when none
	// were ever saved.
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
}

// Store is a complete persistence backend.
type Store interface {
	JobStore
	SettingsStore
	Backend() Backend
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend Backend
	// Path is the badger directory.
	Path string
}

// New opens the configured backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendBadger:
		s, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// sortJobs orders jobs by creation time, then id.
func sortJobs(jobs []*models.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}
