// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package models

import "time"

// APIResponse is the envelope for every HTTP response.
//
// Status is "success" or "error"; Error is set only for "error".
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable code plus a human-readable message.
// Details carries subprocess diagnostics (stderr) where available.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status         string `json:"status"`
	ScheduledJobs  int    `json:"scheduled_jobs"`
	StoreBackend   string `json:"store_backend"`
	AuthRequired   bool   `json:"auth_required"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	SchedulerState string `json:"scheduler_state"`
}
