// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Subprocess outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeNonZero    = "nonzero_exit"
	OutcomeSpawnError = "spawn_error"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// subprocessBuckets span quick rclone listings up to multi-hour archives.
var subprocessBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600, 7200}

var (
	// Scheduler metrics
	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_backup_runs_total",
			Help: "Backup runs by trigger and final status",
		},
		[]string{"trigger", "status"}, // trigger: scheduled, manual
	)

	BackupRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelkeeper_backup_run_duration_seconds",
			Help:    "Wall time of backup runs",
			Buckets: subprocessBuckets,
		},
		[]string{"trigger"},
	)

	BackupRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelkeeper_backup_runs_in_flight",
			Help: "Backup subprocesses currently executing",
		},
	)

	ScheduledJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelkeeper_scheduled_jobs",
			Help: "Entries in the active timer table",
		},
	)

	ScheduleRegistrationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labelkeeper_schedule_registration_errors_total",
			Help: "Cron expressions rejected by the timer backend",
		},
	)

	// Retention metrics
	RotationDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labelkeeper_rotation_deleted_total",
			Help: "Local archives removed by retention rotation",
		},
	)

	RotationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labelkeeper_rotation_errors_total",
			Help: "Local archives that rotation failed to remove",
		},
	)

	// Restore metrics
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_restores_total",
			Help: "Restore requests by source and terminal state",
		},
		[]string{"source", "state"}, // source: local, remote
	)

	// Remote client metrics
	RemoteListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_remote_listings_total",
			Help: "Remote archive listings by result",
		},
		[]string{"result"}, // success, failure, rejected
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelkeeper_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Subprocess metrics
	SubprocessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_subprocess_total",
			Help: "Child processes by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	SubprocessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelkeeper_subprocess_duration_seconds",
			Help:    "Child process wall time by kind",
			Buckets: subprocessBuckets,
		},
		[]string{"kind"},
	)

	SubprocessOutputTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_subprocess_output_truncated_total",
			Help: "Child process streams whose captured output exceeded the tail buffer",
		},
		[]string{"kind", "stream"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelkeeper_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelkeeper_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelkeeper_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordSubprocess records one finished (or failed to start) child process.
func RecordSubprocess(kind, outcome string, duration time.Duration) {
	SubprocessTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeSpawnError {
		SubprocessDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordBackupRun records a finished backup run.
func RecordBackupRun(trigger, status string, duration time.Duration) {
	BackupRunsTotal.WithLabelValues(trigger, status).Inc()
	if duration > 0 {
		BackupRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	}
}

// RecordRotation records the outcome of one rotation pass.
func RecordRotation(deleted, failed int) {
	RotationDeletedTotal.Add(float64(deleted))
	RotationErrorsTotal.Add(float64(failed))
}

// RecordRestore records a restore that reached a terminal state.
func RecordRestore(remote bool, state string) {
	source := "local"
	if remote {
		source = "remote"
	}
	RestoresTotal.WithLabelValues(source, state).Inc()
}

// RecordAPIRequest records a served HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
