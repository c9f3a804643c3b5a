// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// Health reports scheduler state, the number of scheduled jobs and the store
// backend. A stopped scheduler is reported as "degraded", still with a 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, state := "healthy", "running"
	if !h.svc.SchedulerRunning() {
		status, state = "degraded", "stopped"
	}

	respondSuccess(w, r, http.StatusOK, models.HealthStatus{
		Status:         status,
		ScheduledJobs:  h.svc.ScheduledJobs(),
		StoreBackend:   h.svc.StoreBackend(),
		AuthRequired:   h.auth.Enabled(),
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
		SchedulerState: state,
	})
}
