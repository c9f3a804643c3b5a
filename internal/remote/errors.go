// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrList is matched by every *ListError.
	ErrList = errors.New("remote listing failed")

	// ErrCopy is matched by every *CopyError.
	ErrCopy = errors.New("remote copy failed")
)

// ListError is a failed remote listing. Stderr carries rclone's diagnostics
// when the process ran; Detail explains failures where it did not.
type ListError struct {
	Remote   string
	ExitCode int
	Stderr   string
	Detail   string
	Err      error
}

func (e *ListError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("list remote %q: %s", e.Remote, e.Detail)
	case e.Stderr != "":
		return fmt.Sprintf("list remote %q: exit code %d: %s", e.Remote, e.ExitCode, e.Stderr)
	default:
		return fmt.Sprintf("list remote %q: exit code %d", e.Remote, e.ExitCode)
	}
}

func (e *ListError) Unwrap() error { return e.Err }

func (e *ListError) Is(target error) bool { return target == ErrList }

// CopyError is a non-zero exit from rclone copy.
type CopyError struct {
	Remote   string
	File     string
	ExitCode int
	Stderr   string
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s from remote %q: exit code %d", e.File, e.Remote, e.ExitCode)
}

func (e *CopyError) Is(target error) bool { return target == ErrCopy }
