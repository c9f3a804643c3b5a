// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// RemoteConfigFile is the rclone credential file shared with the backup
// executable and rclone.
type RemoteConfigFile struct {
	Path string
}

// Read returns the file contents. A missing file reads as empty.
func (f RemoteConfigFile) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", wrap("read remote config", err)
	}
	return string(data), nil
}

// Write replaces the file, creating its directory when needed. The file is
// written to a temp sibling and renamed so readers never see a partial blob.
func (f RemoteConfigFile) Write(content string) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return wrap("write remote config", fmt.Errorf("create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, ".rclone-*.conf")
	if err != nil {
		return wrap("write remote config", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Best effort cleanup

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return wrap("write remote config", err)
	}
	if err := tmp.Close(); err != nil {
		return wrap("write remote config", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return wrap("write remote config", err)
	}
	return nil
}
