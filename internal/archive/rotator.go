// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
)

// Rotator enforces count-based retention over local archives.
type Rotator struct {
	dir    string
	ext    string
	remove func(string) error
}

// NewRotator returns a Rotator for archives in dir. An empty ext selects
// DefaultExtension.
func NewRotator(dir, ext string) *Rotator {
	if ext == "" {
		ext = DefaultExtension
	}
	return &Rotator{dir: dir, ext: ext, remove: os.Remove}
}

// Dir returns the directory the rotator manages.
func (r *Rotator) Dir() string { return r.dir }

// List returns the archives of label, newest first.
func (r *Rotator) List(label string) ([]string, error) {
	return listLocal(r.dir, label, r.ext)
}

// Rotate deletes every archive of label beyond the newest keep and returns
// the names it removed. Failing to delete one file does not stop the pass;
// all failures are joined into the returned error.
// It is a no-op when keep <= 0.
func (r *Rotator) Rotate(label string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	names, err := r.List(label)
	if err != nil {
		return nil, err
	}
	if len(names) <= keep {
		return nil, nil
	}

	var (
		deleted []string
		errs    []error
	)
	for _, name := range names[keep:] {
		path := filepath.Join(r.dir, name)
		if err := r.remove(path); err != nil {
			logging.Warn().Err(err).Str("label", label).Str("file", name).Msg("Failed to delete old archive")
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		deleted = append(deleted, name)
	}

	metrics.RecordRotation(len(deleted), len(errs))
	if len(deleted) > 0 {
		logging.Info().Str("label", label).Int("kept", keep).Strs("deleted", deleted).Msg("Rotated local archives")
	}
	return deleted, errors.Join(errs...)
}
