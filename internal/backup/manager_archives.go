// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package backup

import (
	"context"
	"errors"

	"github.com/tomtom215/labelkeeper/internal/restore"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

func checkLabel(label string) error {
	if label == "" {
		return fieldError("label", "is required")
	}
	if !validation.IsLabel(label) {
		return fieldError("label", "must be a plain label without path separators")
	}
	return nil
}

// ListLocalArchives returns the archives of label in the backup directory,
// newest first.
func (m *Manager) ListLocalArchives(_ context.Context, label string) ([]string, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	if m.local == nil {
		return []string{}, nil
	}
	return m.local.List(label)
}

// ListRemoteArchives returns the archives of label on remoteName, newest first.
func (m *Manager) ListRemoteArchives(ctx context.Context, label, remoteName string, recursive bool) ([]string, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	if remoteName == "" {
		return nil, fieldError("remote_name", "is required")
	}
	if !validation.IsRemoteName(remoteName) {
		return nil, fieldError("remote_name", "must be a plain rclone remote name")
	}
	if m.remote == nil {
		return nil, errors.New("remote listing is not configured")
	}
	return m.remote.List(ctx, remoteName, label, recursive)
}

// Restore runs a restore to completion. A failed restore returns the Result
// together with a *SubprocessFailure naming the step that failed.
func (m *Manager) Restore(ctx context.Context, req restore.Request) (*restore.Result, error) {
	if m.restorer == nil {
		return nil, errors.New("restore is not configured")
	}
	res, err := m.restorer.Restore(ctx, req)
	if err != nil {
		return res, err
	}
	if res.State == restore.StateFailed {
		op := "restore"
		if res.FailedStep() == string(restore.StateFetching) {
			op = "fetch"
		}
		return res, &SubprocessFailure{Op: op, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}
