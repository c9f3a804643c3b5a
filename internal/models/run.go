// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package models

import "time"

// Trigger identifies what started a backup run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// RunStatus is the lifecycle state of a backup run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// RunRecord describes one firing of a job. Records are kept in memory only.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	JobID      string     `json:"job_id"`
	Label      string     `json:"label"`
	Trigger    Trigger    `json:"trigger"`
	Status     RunStatus  `json:"status"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Error      string     `json:"error,omitempty"`
	StderrTail string     `json:"stderr_tail,omitempty"`
	Rotated    []string   `json:"rotated,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
