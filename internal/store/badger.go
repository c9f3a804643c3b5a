// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	jobKeyPrefix = "job:"
	settingsKey  = "settings:global"
)

// BadgerStore implements Store on BadgerDB.
//
// Each method runs in its own badger transaction. ListJobs iterates the
// "job:" prefix and sorts by CreatedAt; badger key order is by id, which
// is a random UUID.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, &Error{Op: "open", Err: errors.New("badger path is required")}
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &Error{Op: "open", Err: fmt.Errorf("open badger db: %w", err)}
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreFromDB wraps an existing DB connection.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Backend implements Store.
func (s *BadgerStore) Backend() Backend { return BackendBadger }

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func jobKey(id string) []byte {
	return []byte(jobKeyPrefix + id)
}

// CreateJob stores a new job. A duplicate id yields ErrExists.
func (s *BadgerStore) CreateJob(_ context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return wrap("create job", fmt.Errorf("marshal job: %w", err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := jobKey(job.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("job %s: %w", job.ID, ErrExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	return wrap("create job", err)
}

// GetJob returns the job with id.
func (s *BadgerStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, wrap("get job", err)
	}
	return &job, nil
}

// ListJobs returns every job ordered by creation time.
func (s *BadgerStore) ListJobs(_ context.Context) ([]*models.Job, error) {
	jobs := []*models.Job{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var job models.Job
				if err := json.Unmarshal(val, &job); err != nil {
					return fmt.Errorf("unmarshal %s: %w", it.Item().Key(), err)
				}
				jobs = append(jobs, &job)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list jobs", err)
	}
	sortJobs(jobs)
	return jobs, nil
}

// UpdateJob replaces an existing job.
func (s *BadgerStore) UpdateJob(_ context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return wrap("update job", fmt.Errorf("marshal job: %w", err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := jobKey(job.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
		} else if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	return wrap("update job", err)
}

// DeleteJob removes a job.
func (s *BadgerStore) DeleteJob(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := jobKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return wrap("delete job", err)
}

// GetSettings returns the stored settings.
func (s *BadgerStore) GetSettings(_ context.Context) (*models.Settings, error) {
	settings := &models.Settings{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, settings)
		})
	})
	if err != nil {
		return nil, wrap("get settings", err)
	}
	return settings, nil
}

// SaveSettings replaces the settings record. RemoteConfig is never written
// here; it lives in the rclone config file.
func (s *BadgerStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	stored := settings.Clone()
	stored.RemoteConfig = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return wrap("save settings", fmt.Errorf("marshal settings: %w", err))
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
	return wrap("save settings", err)
}
