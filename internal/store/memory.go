// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// MemoryStore is an in-memory Store. Records are cloned on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]*models.Job
	settings *models.Settings
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

// Backend implements Store.
func (s *MemoryStore) Backend() Backend { return BackendMemory }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrExists)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job.Clone(), nil
}

func (s *MemoryStore) ListJobs(_ context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.Clone())
	}
	s.mu.RUnlock()
	sortJobs(jobs)
	return jobs, nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone(), nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	stored := settings.Clone()
	stored.RemoteConfig = ""
	s.mu.Lock()
	s.settings = stored
	s.mu.Unlock()
	return nil
}
